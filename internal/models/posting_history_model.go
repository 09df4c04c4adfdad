package models

import "time"

type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	CycleID      string    `db:"cycle_id" json:"cycle_id"`
	Row          int       `db:"row_index" json:"row"`
	TextPreview  string    `db:"text_preview" json:"text_preview"`
	MediaID      string    `db:"media_id" json:"media_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
