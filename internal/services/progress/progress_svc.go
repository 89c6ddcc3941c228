package progress

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracks AI slide-generation progress per presentation so the editor UI can
// poll it. State lives in a TTL'd Redis hash: entries clean themselves up and
// survive across server instances.

const (
	keyPrefix = "genprog:"
	entryTTL  = 5 * time.Minute

	totalSteps = 6
	// Step 4 (image fetching) reports per-slide progress.
	imageFetchStep = 4
)

var stepMessages = [totalSteps]string{
	"Analyzing your content...",
	"AI is generating slide structure...",
	"Creating visual elements...",
	"Fetching images for each slide...",
	"Saving slides to database...",
	"Presentation ready!",
}

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var ErrNotTracked = errors.New("no generation in progress")

type State struct {
	Step         int    `json:"step"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
	CurrentSlide int    `json:"current_slide,omitempty"`
	TotalSlides  int    `json:"total_slides,omitempty"`
	Percentage   int    `json:"percentage"`
}

// The generation pipeline (an external worker) drives the writers; this server
// only reads through Get to answer the editor's polling endpoint.
type IProgressService interface {
	Start(ctx context.Context, presentationID string) error
	Update(ctx context.Context, presentationID string, step, currentSlide, totalSlides int) error
	Complete(ctx context.Context, presentationID string) error
	Fail(ctx context.Context, presentationID string, cause error) error
	Get(ctx context.Context, presentationID string) (*State, error)
}

type progressService struct {
	rdc *redis.Client
}

func NewProgressService(rdc *redis.Client) IProgressService {
	return &progressService{rdc: rdc}
}

func (svc *progressService) Start(ctx context.Context, presentationID string) error {
	return svc.write(ctx, presentationID, State{
		Step:    1,
		Status:  StatusProcessing,
		Message: stepMessages[0],
	})
}

func (svc *progressService) Update(ctx context.Context, presentationID string, step, currentSlide, totalSlides int) error {
	if step < 1 || step > totalSteps {
		return errors.New("step out of range")
	}
	return svc.write(ctx, presentationID, State{
		Step:         step,
		Status:       StatusProcessing,
		Message:      stepMessages[step-1],
		CurrentSlide: currentSlide,
		TotalSlides:  totalSlides,
	})
}

func (svc *progressService) Complete(ctx context.Context, presentationID string) error {
	return svc.write(ctx, presentationID, State{
		Step:    totalSteps,
		Status:  StatusCompleted,
		Message: stepMessages[totalSteps-1],
	})
}

func (svc *progressService) Fail(ctx context.Context, presentationID string, cause error) error {
	st := State{Step: totalSteps, Status: StatusFailed, Message: "Generation failed"}
	if cause != nil {
		st.Error = cause.Error()
	}
	return svc.write(ctx, presentationID, st)
}

func (svc *progressService) Get(ctx context.Context, presentationID string) (*State, error) {
	data, err := svc.rdc.HGetAll(ctx, keyPrefix+presentationID).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotTracked
	}

	st := &State{
		Status:  data["status"],
		Message: data["msg"],
		Error:   data["err"],
	}
	st.Step, _ = strconv.Atoi(data["step"])
	st.CurrentSlide, _ = strconv.Atoi(data["cur"])
	st.TotalSlides, _ = strconv.Atoi(data["total"])
	st.Percentage = percentage(st)
	return st, nil
}

func (svc *progressService) write(ctx context.Context, presentationID string, st State) error {
	key := keyPrefix + presentationID
	pipe := svc.rdc.TxPipeline()
	pipe.HSet(ctx, key,
		"step", st.Step,
		"status", st.Status,
		"msg", st.Message,
		"err", st.Error,
		"cur", st.CurrentSlide,
		"total", st.TotalSlides,
	)
	pipe.Expire(ctx, key, entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func percentage(st *State) int {
	switch {
	case st.Status == StatusCompleted:
		return 100
	case st.Step == imageFetchStep && st.TotalSlides > 0:
		return st.CurrentSlide * 100 / st.TotalSlides
	case st.Step < 1:
		return 0
	default:
		return st.Step * 100 / totalSteps
	}
}
