// package formatter renders resolved pages, sync summaries and token indexes as text, JSON views and CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/tasks"
)

// ItemView is the flattened, serializable form of a classified item.
type ItemView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Channel     string              `json:"channel,omitempty"`
	Position    int                 `json:"position"`
	State       models.Availability `json:"state"`
	CandidateID string              `json:"candidate_id,omitempty"`
	Candidate   string              `json:"candidate,omitempty"`
	Score       *int                `json:"score,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// PageView is the serializable form of a [models.ResolvedPage].
type PageView struct {
	CollectionID string     `json:"collection_id"`
	Page         int        `json:"page"`
	TotalItems   int        `json:"total_items"`
	HasNext      bool       `json:"has_next"`
	Drift        int        `json:"drift,omitempty"`
	Items        []ItemView `json:"items"`
}

// NewItemView flattens ci. Failed classifications carry their error text and the UNCHECKED state.
func NewItemView(ci models.ClassifiedItem) ItemView {
	v := ItemView{
		ID:       ci.Item.ID,
		Title:    ci.Item.Title,
		Channel:  ci.Item.ChannelTitle,
		Position: ci.Item.Position,
		State:    ci.Outcome.State(),
	}

	switch ci.Outcome.Kind {
	case models.OutcomeClassified:
		if r := ci.Outcome.Record; r != nil {
			v.CandidateID = r.CandidateID()
			v.Candidate = r.CandidateLabel()
			v.Score = r.Score()
		}
	case models.OutcomeParsingError, models.OutcomeExpiredToken, models.OutcomeStoreError:
		v.Error = ci.Outcome.Kind.String()
		if ci.Outcome.Err != nil {
			v.Error = fmt.Sprintf("%s: %v", ci.Outcome.Kind, ci.Outcome.Err)
		}
	}
	return v
}

func NewPageView(p *models.ResolvedPage) PageView {
	v := PageView{
		CollectionID: p.CollectionID,
		Page:         p.Number,
		TotalItems:   p.TotalItems,
		HasNext:      p.NextToken != "",
		Drift:        p.Drift,
		Items:        make([]ItemView, 0, len(p.Items)),
	}
	for _, ci := range p.Items {
		v.Items = append(v.Items, NewItemView(ci))
	}
	return v
}

// SyncView is the serializable form of a [tasks.SyncResult].
type SyncView struct {
	CollectionID string                      `json:"collection_id"`
	Pages        int                         `json:"pages"`
	Items        int                         `json:"items"`
	Drift        int                         `json:"drift,omitempty"`
	States       map[models.Availability]int `json:"states"`
	Failures     map[string]int              `json:"failures,omitempty"`
}

func NewSyncView(r *tasks.SyncResult) SyncView {
	v := SyncView{
		CollectionID: r.CollectionID,
		Pages:        r.Pages,
		Items:        r.Items,
		Drift:        r.Drift,
		States:       r.States,
	}
	if len(r.Failures) > 0 {
		v.Failures = make(map[string]int, len(r.Failures))
		for k, n := range r.Failures {
			v.Failures[k.String()] = n
		}
	}
	return v
}

// RecordView is the serializable form of a [models.CorrelationRecord].
type RecordView struct {
	ItemID      string              `json:"item_id"`
	Owner       string              `json:"owner"`
	State       models.Availability `json:"state"`
	CandidateID string              `json:"candidate_id,omitempty"`
	Candidate   string              `json:"candidate,omitempty"`
	Score       *int                `json:"score,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewRecordView(r *models.CorrelationRecord) RecordView {
	return RecordView{
		ItemID:      r.ItemID(),
		Owner:       r.Owner(),
		State:       r.State(),
		CandidateID: r.CandidateID(),
		Candidate:   r.CandidateLabel(),
		Score:       r.Score(),
		UpdatedAt:   r.UpdatedAt(),
	}
}

// CollectionView is the serializable form of a [models.Collection].
type CollectionView struct {
	Sequence  int                     `json:"sequence"`
	RemoteID  string                  `json:"remote_id"`
	ItemCount int                     `json:"item_count"`
	Status    models.CollectionStatus `json:"status"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func NewCollectionView(c *models.Collection) CollectionView {
	return CollectionView{
		Sequence:  c.Sequence(),
		RemoteID:  c.RemoteID(),
		ItemCount: c.ItemCount(),
		Status:    c.Status(),
		UpdatedAt: c.UpdatedAt(),
	}
}

// FormatPage renders a resolved page as a numbered list with styled availability labels.
func FormatPage(p *models.ResolvedPage) []byte {
	var buf bytes.Buffer

	buf.WriteString(styles.Title(fmt.Sprintf("%s · page %d", p.CollectionID, p.Number)))
	buf.WriteString(fmt.Sprintf("\nItems: %d total", p.TotalItems))
	if p.Drift != 0 {
		buf.WriteString(fmt.Sprintf(", index shifted by %d page(s)", p.Drift))
	}
	buf.WriteString("\n\n")

	for _, ci := range p.Items {
		buf.WriteString(formatItem(NewItemView(ci)))
	}

	if p.NextToken == "" {
		buf.WriteString("\n" + styles.Muted("end of collection") + "\n")
	}
	return buf.Bytes()
}

func formatItem(v ItemView) string {
	line := fmt.Sprintf("%4d. %-48s %s", v.Position+1, truncate(v.Title, 48), styles.State(v.State))
	switch {
	case v.Candidate != "" && v.Score != nil:
		line += fmt.Sprintf("  %s (%d)", v.Candidate, *v.Score)
	case v.Candidate != "":
		line += "  " + v.Candidate
	case v.Error != "":
		line += "  " + styles.Muted(v.Error)
	}
	return line + "\n"
}

// FormatSyncResult renders per-state counts of a full collection walk.
func FormatSyncResult(r *tasks.SyncResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(styles.Title(fmt.Sprintf("Synced %s", r.CollectionID)))
	buf.WriteString(fmt.Sprintf("\nPages: %d\nItems: %d\n", r.Pages, r.Items))
	if r.Drift != 0 {
		buf.WriteString(fmt.Sprintf("Drift: %d page(s)\n", r.Drift))
	}

	buf.WriteString("\n")
	for _, state := range []models.Availability{models.Available, models.Pending, models.Unavailable, models.Unchecked} {
		buf.WriteString(fmt.Sprintf("  %-24s %d\n", styles.State(state), r.States[state]))
	}

	if len(r.Failures) > 0 {
		kinds := make([]models.OutcomeKind, 0, len(r.Failures))
		for k := range r.Failures {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)

		buf.WriteString("\nFailures:\n")
		for _, k := range kinds {
			buf.WriteString(fmt.Sprintf("  %-14s %d\n", k, r.Failures[k]))
		}
	}
	return buf.Bytes()
}

// FormatTokens renders the page token index of a collection, one page per line.
func FormatTokens(collectionID string, entries []models.PageTokenEntry) []byte {
	var buf bytes.Buffer

	buf.WriteString(styles.Title(fmt.Sprintf("%s · %d recorded page(s)", collectionID, len(entries))))
	buf.WriteString("\n")
	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("%6d  %s\n", e.Page, e.Token))
	}
	return buf.Bytes()
}

// FormatRecords renders availability records with their per-state totals.
func FormatRecords(owner string, records []*models.CorrelationRecord, counts map[models.Availability]int) []byte {
	var buf bytes.Buffer

	buf.WriteString(styles.Title(fmt.Sprintf("Records for %s", owner)))
	buf.WriteString("\n")
	for _, state := range []models.Availability{models.Available, models.Pending, models.Unavailable} {
		buf.WriteString(fmt.Sprintf("  %-24s %d\n", styles.State(state), counts[state]))
	}
	buf.WriteString("\n")

	for _, r := range records {
		v := NewRecordView(r)
		line := fmt.Sprintf("%-14s %s", v.ItemID, styles.State(v.State))
		if v.Candidate != "" {
			line += "  " + v.Candidate
		}
		if v.Score != nil {
			line += fmt.Sprintf(" (%d)", *v.Score)
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// FormatCollections renders mirrored playlists in sequence order.
func FormatCollections(collections []*models.Collection) []byte {
	var buf bytes.Buffer

	buf.WriteString(styles.Title(fmt.Sprintf("%d playlist(s)", len(collections))))
	buf.WriteString("\n")
	for _, c := range collections {
		count := "?"
		if c.HasKnownCount() {
			count = strconv.Itoa(c.ItemCount())
		}
		buf.WriteString(fmt.Sprintf("%4d. %-36s %6s items  %s\n", c.Sequence(), c.RemoteID(), count, styles.Muted(string(c.Status()))))
	}
	return buf.Bytes()
}

// ExportToCSV converts classified items to CSV with columns: ID, Title, Channel, Position, State, CandidateID, Candidate, Score
func ExportToCSV(items []models.ClassifiedItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Channel", "Position", "State", "CandidateID", "Candidate", "Score"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ci := range items {
		v := NewItemView(ci)
		score := ""
		if v.Score != nil {
			score = strconv.Itoa(*v.Score)
		}
		record := []string{
			v.ID,
			v.Title,
			v.Channel,
			strconv.Itoa(v.Position),
			string(v.State),
			v.CandidateID,
			v.Candidate,
			score,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteCSVExport writes classified items to path.
//
// Defaults to {collectionID}_page_{n}.csv as the filename.
func WriteCSVExport(p *models.ResolvedPage, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_page_%d.csv", p.CollectionID, p.Number)
	}

	data, err := ExportToCSV(p.Items)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
