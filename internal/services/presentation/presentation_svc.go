package presentation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PresentationSummaryDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	SlidesCount int       `json:"slides_count"`
	UpdatedAt   time.Time `json:"updated_at" example:"2025-07-27T16:05:05Z"`
}

type PresentationDTO struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Theme       json.RawMessage `json:"theme,omitempty"`
	IsPublic    bool            `json:"is_public"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Slides      []SlideDTO      `json:"slides"`
}

// SlideDTO carries one slide. Content is opaque editor JSON; the server never
// looks inside it.
type SlideDTO struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Content         json.RawMessage `json:"content"`
	Notes           string          `json:"notes,omitempty"`
	BackgroundURL   string          `json:"background_url,omitempty"`
	BackgroundColor string          `json:"background_color,omitempty"`
	Order           int             `json:"order"`
	Transition      string          `json:"transition"`
}

// UpdateFields is a partial update; nil fields are left untouched.
type UpdateFields struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Theme       json.RawMessage `json:"theme"`
	IsPublic    *bool           `json:"is_public"`
}

var (
	ErrNotFound   = errors.New("presentation not found")
	ErrEmptyTitle = errors.New("title is required")
)

// Slides created client-side carry a "temp-" id until first saved.
const tempIDPrefix = "temp-"

const defaultTransition = "fade"

type IPresentationService interface {
	ListPresentations(ctx context.Context, ownerID string) ([]PresentationSummaryDTO, error)
	GetPresentation(ctx context.Context, id string) (*PresentationDTO, error)
	CreatePresentation(ctx context.Context, ownerID, title, description string) (*PresentationDTO, error)
	UpdatePresentation(ctx context.Context, id string, fields UpdateFields) error
	DeletePresentation(ctx context.Context, id string) error
	DuplicatePresentation(ctx context.Context, id, ownerID string) (string, error)
	ReplaceSlides(ctx context.Context, presentationID string, slides []SlideDTO) ([]SlideDTO, error)
}

type presentationService struct {
	db *sql.DB
}

func NewPresentationService(db *sql.DB) IPresentationService {
	return &presentationService{db: db}
}

func (svc *presentationService) ListPresentations(ctx context.Context, ownerID string) ([]PresentationSummaryDTO, error) {
	const q = `
	  SELECT p.id, p.title, COALESCE(p.description,''), COUNT(s.id), p.updated_at
	    FROM presentations p
	    LEFT JOIN slides s ON s.presentation_id = p.id
	   WHERE p.owner_id = $1
	   GROUP BY p.id
	   ORDER BY p.updated_at DESC`

	rows, err := svc.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PresentationSummaryDTO{}
	for rows.Next() {
		var dto PresentationSummaryDTO
		if err := rows.Scan(&dto.ID, &dto.Title, &dto.Description, &dto.SlidesCount, &dto.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, rows.Err()
}

func (svc *presentationService) GetPresentation(ctx context.Context, id string) (*PresentationDTO, error) {
	const q = `
	  SELECT id, owner_id, title, COALESCE(description,''), COALESCE(theme,'null'), is_public, updated_at
	    FROM presentations WHERE id = $1`

	dto := &PresentationDTO{}
	var theme []byte
	err := svc.db.QueryRowContext(ctx, q, id).Scan(
		&dto.ID, &dto.OwnerID, &dto.Title, &dto.Description, &theme, &dto.IsPublic, &dto.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if string(theme) != "null" {
		dto.Theme = theme
	}

	dto.Slides, err = svc.loadSlides(ctx, id)
	return dto, err
}

func (svc *presentationService) loadSlides(ctx context.Context, presentationID string) ([]SlideDTO, error) {
	const q = `
	  SELECT id, title, content, COALESCE(notes,''), COALESCE(background_url,''),
	         COALESCE(background_color,''), slide_order, transition
	    FROM slides WHERE presentation_id = $1 ORDER BY slide_order ASC`

	rows, err := svc.db.QueryContext(ctx, q, presentationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SlideDTO{}
	for rows.Next() {
		var s SlideDTO
		var content []byte
		if err := rows.Scan(&s.ID, &s.Title, &content, &s.Notes, &s.BackgroundURL,
			&s.BackgroundColor, &s.Order, &s.Transition); err != nil {
			return nil, err
		}
		s.Content = content
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreatePresentation inserts the presentation plus a default title slide.
func (svc *presentationService) CreatePresentation(ctx context.Context, ownerID, title, description string) (*PresentationDTO, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
	  INSERT INTO presentations (id, owner_id, title, description, is_public, created_at, updated_at)
	       VALUES ($1, $2, $3, $4, FALSE, $5, $5)`,
		id, ownerID, title, description, now)
	if err != nil {
		return nil, err
	}

	slide := SlideDTO{
		ID:              uuid.NewString(),
		Title:           "Title Slide",
		Content:         defaultTitleSlideContent(title),
		BackgroundColor: "#3b82f6",
		Order:           0,
		Transition:      defaultTransition,
	}
	_, err = tx.ExecContext(ctx, `
	  INSERT INTO slides (id, presentation_id, title, content, background_color, slide_order, transition)
	       VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		slide.ID, id, slide.Title, []byte(slide.Content), slide.BackgroundColor, slide.Order, slide.Transition)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &PresentationDTO{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		UpdatedAt:   now,
		Slides:      []SlideDTO{slide},
	}, nil
}

func (svc *presentationService) UpdatePresentation(ctx context.Context, id string, fields UpdateFields) error {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return ErrEmptyTitle
	}

	const q = `
	  UPDATE presentations
	     SET title       = COALESCE($2, title),
	         description = COALESCE($3, description),
	         theme       = COALESCE($4, theme),
	         is_public   = COALESCE($5, is_public),
	         updated_at  = NOW()
	   WHERE id = $1`

	var theme any
	if fields.Theme != nil {
		theme = []byte(fields.Theme)
	}
	res, err := svc.db.ExecContext(ctx, q, id, fields.Title, fields.Description, theme, fields.IsPublic)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *presentationService) DeletePresentation(ctx context.Context, id string) error {
	// Slides go with it via ON DELETE CASCADE.
	res, err := svc.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DuplicatePresentation deep-copies the presentation and all its slides under
// a fresh id, titled "<title> (Copy)". Returns the new id.
func (svc *presentationService) DuplicatePresentation(ctx context.Context, id, ownerID string) (string, error) {
	src, err := svc.GetPresentation(ctx, id)
	if err != nil {
		return "", err
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	newID := uuid.NewString()
	var theme any
	if src.Theme != nil {
		theme = []byte(src.Theme)
	}
	_, err = tx.ExecContext(ctx, `
	  INSERT INTO presentations (id, owner_id, title, description, theme, is_public, created_at, updated_at)
	       VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())`,
		newID, ownerID, src.Title+" (Copy)", src.Description, theme)
	if err != nil {
		return "", err
	}

	for _, s := range src.Slides {
		_, err = tx.ExecContext(ctx, `
		  INSERT INTO slides (id, presentation_id, title, content, notes, background_url,
		                      background_color, slide_order, transition)
		       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.NewString(), newID, s.Title, []byte(s.Content), s.Notes,
			s.BackgroundURL, s.BackgroundColor, s.Order, s.Transition)
		if err != nil {
			return "", err
		}
	}

	return newID, tx.Commit()
}

// ReplaceSlides makes the stored slide set match the submitted one in a single
// transaction: slides missing from the submission are deleted, "temp-" ids are
// inserted fresh, everything else is updated in place.
func (svc *presentationService) ReplaceSlides(ctx context.Context, presentationID string, slides []SlideDTO) ([]SlideDTO, error) {
	var exists bool
	err := svc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM presentations WHERE id = $1)`, presentationID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	keep := make([]string, 0, len(slides))
	for _, s := range slides {
		if !strings.HasPrefix(s.ID, tempIDPrefix) {
			keep = append(keep, s.ID)
		}
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM slides WHERE presentation_id = $1 AND NOT (id = ANY($2))`,
		presentationID, keep)
	if err != nil {
		return nil, err
	}

	for _, s := range slides {
		transition := s.Transition
		if transition == "" {
			transition = defaultTransition
		}
		if strings.HasPrefix(s.ID, tempIDPrefix) {
			_, err = tx.ExecContext(ctx, `
			  INSERT INTO slides (id, presentation_id, title, content, notes, background_url,
			                      background_color, slide_order, transition)
			       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				uuid.NewString(), presentationID, s.Title, []byte(s.Content), s.Notes,
				s.BackgroundURL, s.BackgroundColor, s.Order, transition)
		} else {
			_, err = tx.ExecContext(ctx, `
			  UPDATE slides
			     SET title = $3, content = $4, notes = $5, background_url = $6,
			         background_color = $7, slide_order = $8, transition = $9
			   WHERE id = $1 AND presentation_id = $2`,
				s.ID, presentationID, s.Title, []byte(s.Content), s.Notes,
				s.BackgroundURL, s.BackgroundColor, s.Order, transition)
		}
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE presentations SET updated_at = NOW() WHERE id = $1`, presentationID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return svc.loadSlides(ctx, presentationID)
}

func defaultTitleSlideContent(title string) json.RawMessage {
	content, _ := json.Marshal(map[string]any{
		"elements": []map[string]any{{
			"id":         "title-1",
			"type":       "text",
			"content":    title,
			"x":          50,
			"y":          40,
			"width":      80,
			"height":     20,
			"fontSize":   48,
			"fontWeight": "bold",
			"fontFamily": "Inter",
			"color":      "#ffffff",
			"textAlign":  "center",
		}},
	})
	return content
}
