// Package intake implements the form submission workflow: resolve the
// submitter, run the agent job, wait for its record, store it and send the
// confirmation email.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/contactform/internal/agent"
	"github.com/ashureev/contactform/internal/domain"
	"github.com/ashureev/contactform/internal/notify"
	"github.com/ashureev/contactform/internal/store"
)

// Response messages returned to the form.
const (
	MsgEmptyInput   = "Empty Email or Phone"
	MsgEmailSent    = "Confirmation Email Sent"
	MsgReceived     = "Submission Received"
	MsgServerError  = "Server Error"
	confirmSubject  = "Sign Up Success"
	userViewPattern = "%s/api/form/user/%d"
)

// Options tunes the submission workflow.
type Options struct {
	// PollAttempts is the maximum number of result checks per submission.
	PollAttempts int
	// PollInterval is the longest wait between two checks. A finished job
	// wakes the waiter early.
	PollInterval time.Duration
	// RequireData skips the confirmation email when no record arrived in time.
	// Off by default: the email is sent regardless of the poll outcome.
	RequireData bool
	// PublicBaseURL prefixes the user view link in emails.
	PublicBaseURL string
}

// DefaultOptions returns the default workflow options.
func DefaultOptions() Options {
	return Options{
		PollAttempts:  10,
		PollInterval:  5 * time.Second,
		PublicBaseURL: "http://localhost:3001",
	}
}

// Ack is the acknowledgment returned to the submitter.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service runs submissions.
type Service struct {
	repo     store.Repository
	runner   agent.Runner
	notifier notify.Notifier
	opts     Options
	logger   *slog.Logger
}

// NewService creates a submission service. A nil logger uses slog.Default.
func NewService(repo store.Repository, runner agent.Runner, notifier notify.Notifier, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 1
	}
	if opts.PollInterval < 0 {
		opts.PollInterval = 0
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Service{
		repo:     repo,
		runner:   runner,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Submit registers email and phone, enriches the user with the agent record
// when it arrives in time and sends the confirmation email.
//
// Errors wrap domain.ErrValidation (nothing was changed) or domain.ErrInternal
// (earlier steps are not rolled back).
func (s *Service) Submit(ctx context.Context, email, phone string) (Ack, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" || phone == "" {
		return Ack{Success: false, Message: MsgEmptyInput}, fmt.Errorf("email and phone are required: %w", domain.ErrValidation)
	}

	user, created, err := s.resolveUser(ctx, email, phone)
	if err != nil {
		return serverError(err)
	}

	trig, err := s.runner.Trigger(user.ID)
	if err != nil {
		return serverError(internalErr("trigger agent", err))
	}
	s.logger.Info("Agent triggered", "user_id", user.ID, "job_id", trig.JobID, "started", trig.Started)

	status, err := s.awaitResult(ctx, user.ID)
	if err != nil {
		return serverError(internalErr("wait for agent result", err))
	}

	if status.Ready {
		data, err := json.Marshal(status.Data)
		if err != nil {
			return serverError(internalErr("encode agent record", err))
		}
		if _, err := s.repo.UpdateData(ctx, user.ID, string(data)); err != nil {
			return serverError(internalErr("store agent record", err))
		}
		s.logger.Info("User data updated", "user_id", user.ID)
	} else {
		s.logger.Warn("Agent result not ready within poll window",
			"user_id", user.ID,
			"attempts", s.opts.PollAttempts,
			"interval", s.opts.PollInterval)
		if s.opts.RequireData {
			return Ack{Success: true, Message: MsgReceived}, nil
		}
	}

	if err := s.notifier.Send(ctx, email, confirmSubject, s.confirmationBody(user.ID, created)); err != nil {
		return serverError(internalErr("send confirmation", err))
	}

	return Ack{Success: true, Message: MsgEmailSent}, nil
}

// resolveUser finds the user by phone or creates it. A creation that loses a
// race to a concurrent submission re-reads the winner's row.
func (s *Service) resolveUser(ctx context.Context, email, phone string) (*domain.User, bool, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, false, internalErr("find user", err)
	}
	if user != nil {
		s.logger.Info("Existing submitter", "user_id", user.ID)
		return user, false, nil
	}

	user, err = s.repo.CreateUser(ctx, email, phone)
	if err == nil {
		s.logger.Info("User created", "user_id", user.ID)
		return user, true, nil
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		return nil, false, internalErr("create user", err)
	}

	user, err = s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, false, internalErr("re-read user after duplicate", err)
	}
	if user == nil {
		return nil, false, internalErr("re-read user after duplicate", domain.ErrNotFound)
	}
	s.logger.Info("Concurrent submission created user first", "user_id", user.ID)
	return user, false, nil
}

// awaitResult checks the agent up to PollAttempts times. Between checks it
// waits for PollInterval, the job's completion, or ctx, whichever is first.
func (s *Service) awaitResult(ctx context.Context, userID int64) (agent.Status, error) {
	done := s.runner.Done(userID)

	for attempt := 1; attempt <= s.opts.PollAttempts; attempt++ {
		status := s.runner.Peek(userID)
		if status.Ready && status.Data != nil {
			return status, nil
		}
		s.logger.Debug("Agent result pending", "user_id", userID, "attempt", attempt)

		if attempt == s.opts.PollAttempts {
			break
		}

		timer := time.NewTimer(s.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return agent.Status{}, ctx.Err()
		case <-done:
			// Result should be visible now; skip the remaining interval.
			done = nil
		case <-timer.C:
		}
		timer.Stop()
	}

	return agent.Status{}, nil
}

func (s *Service) confirmationBody(userID int64, created bool) string {
	link := fmt.Sprintf(userViewPattern, s.opts.PublicBaseURL, userID)
	if created {
		return "Thank you for Sign Up! You can check your information on: " + link
	}
	return "Signed Up! Check your information on: " + link
}

func internalErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}

func serverError(err error) (Ack, error) {
	return Ack{Success: false, Message: MsgServerError}, err
}
