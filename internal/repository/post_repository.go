package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maheshrc27/threads-poster/internal/models"
)

const (
	ColumnText     = "text"
	ColumnImage    = "image"
	ColumnStatus   = "status"
	ColumnPostedAt = "posted_at"
)

const utf8BOM = "\ufeff"

// PostRepository reads and writes the CSV file that holds the posting queue.
type PostRepository interface {
	// Load reads every row. Failures wrap models.ErrStoreUnavailable.
	Load(ctx context.Context) (*PostTable, error)
	// Save atomically replaces the file with the table's current contents.
	Save(ctx context.Context, table *PostTable) error
	Path() string
}

type postRepository struct {
	path string
}

func NewPostRepository(path string) PostRepository {
	return &postRepository{path: path}
}

func (r *postRepository) Path() string {
	return r.path
}

func (r *postRepository) Load(ctx context.Context) (*PostTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, r.unavailable(err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	lines, err := reader.ReadAll()
	if err != nil {
		return nil, r.unavailable(fmt.Errorf("parse csv: %w", err))
	}
	if len(lines) == 0 {
		return nil, r.unavailable(errors.New("missing header row"))
	}

	table, err := newPostTable(lines[0], lines[1:])
	if err != nil {
		return nil, r.unavailable(err)
	}
	return table, nil
}

func (r *postRepository) Save(ctx context.Context, table *PostTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+"-*")
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := table.write(tmp); err != nil {
		tmp.Close()
		slog.Info(err.Error())
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func (r *postRepository) unavailable(err error) error {
	slog.Info(err.Error())
	return fmt.Errorf("%w: %s: %w", models.ErrStoreUnavailable, r.path, err)
}

// PostTable is the in-memory form of the CSV file. Raw cells are kept so that
// columns this program does not know about are written back untouched.
type PostTable struct {
	Header  []string
	Records []*models.PostRecord

	rows     [][]string
	bom      bool
	text     int
	image    int
	status   int
	postedAt int
}

func newPostTable(header []string, rows [][]string) (*PostTable, error) {
	t := &PostTable{
		Header: append([]string(nil), header...),
		rows:   rows,
	}
	if len(t.Header) > 0 && strings.HasPrefix(t.Header[0], utf8BOM) {
		t.bom = true
		t.Header[0] = strings.TrimPrefix(t.Header[0], utf8BOM)
	}

	t.text = t.column(ColumnText)
	t.status = t.column(ColumnStatus)
	if t.text < 0 || t.status < 0 {
		return nil, fmt.Errorf("header must contain %q and %q columns", ColumnText, ColumnStatus)
	}
	t.image = t.ensureColumn(ColumnImage)
	t.postedAt = t.ensureColumn(ColumnPostedAt)

	t.Records = make([]*models.PostRecord, len(rows))
	for i, row := range rows {
		rec := &models.PostRecord{
			Row:    i,
			Text:   cell(row, t.text),
			Image:  models.NewImageRef(cell(row, t.image)),
			Status: models.PostStatus(strings.TrimSpace(cell(row, t.status))),
		}
		if raw := strings.TrimSpace(cell(row, t.postedAt)); raw != "" {
			if at, err := time.ParseInLocation(models.PostedAtLayout, raw, time.Local); err == nil {
				rec.PostedAt = &at
			}
		}
		t.Records[i] = rec
	}
	return t, nil
}

func (t *PostTable) column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func (t *PostTable) ensureColumn(name string) int {
	if i := t.column(name); i >= 0 {
		return i
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// Pending returns the pending records in file order.
func (t *PostTable) Pending() []*models.PostRecord {
	var pending []*models.PostRecord
	for _, rec := range t.Records {
		if rec.IsPending() {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Count returns how many records have the given status.
func (t *PostTable) Count(status models.PostStatus) int {
	n := 0
	for _, rec := range t.Records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// MarkPosted moves a pending record to posted and stamps posted_at.
func (t *PostTable) MarkPosted(rec *models.PostRecord, at time.Time) error {
	if rec.Row < 0 || rec.Row >= len(t.rows) || t.Records[rec.Row] != rec {
		return fmt.Errorf("record %d does not belong to this table", rec.Row)
	}
	if !rec.IsPending() {
		return fmt.Errorf("record %d is %q, only pending records can be marked posted", rec.Row, rec.Status)
	}

	stamp := at.Format(models.PostedAtLayout)
	t.set(rec.Row, t.status, string(models.PostStatusPosted))
	t.set(rec.Row, t.postedAt, stamp)

	posted, _ := time.ParseInLocation(models.PostedAtLayout, stamp, at.Location())
	rec.Status = models.PostStatusPosted
	rec.PostedAt = &posted
	return nil
}

func (t *PostTable) set(row, col int, value string) {
	for len(t.rows[row]) <= col {
		t.rows[row] = append(t.rows[row], "")
	}
	t.rows[row][col] = value
}

func (t *PostTable) write(f *os.File) error {
	if t.bom {
		if _, err := f.WriteString(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.rows {
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
