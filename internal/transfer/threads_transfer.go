package transfer

type ThreadsContainer struct {
	ID string `json:"id"`
}

type ThreadsUserInfo struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}

type ThreadsErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		ErrorUserMsg string `json:"error_user_msg"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}
