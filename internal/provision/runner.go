package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/domain"
	"workspace-provision/internal/logger"
	"workspace-provision/internal/metrics"
	"workspace-provision/internal/notify"
	"workspace-provision/internal/providers"
	"workspace-provision/internal/record"
)

type State string

const (
	StateParseInput   State = "ParseInput"
	StateAuthenticate State = "Authenticate"
	StateProvision    State = "Provision"
	StateNotify       State = "Notify"
	StateDone         State = "Done"
	StateFailed       State = "Failed"
)

type RecordLoader interface {
	Load(ctx context.Context) (domain.UserRecord, error)
}

// Connector authenticates and returns the directory to provision into.
type Connector func(ctx context.Context) (providers.Directory, error)

type Runner struct {
	Source   RecordLoader
	Connect  Connector
	Notifier notify.Sender
	Logger   zerolog.Logger
	Metrics  *metrics.Recorder

	newRunID func() string
}

// Result is the outcome of one run. State is StateDone or StateFailed;
// FailedAt names the step that stopped a failed run.
type Result struct {
	RunID     string
	State     State
	FailedAt  State
	User      domain.CreatedUser
	Notified  bool
	NotifyErr error
	Err       error
}

// Run executes ParseInput, Authenticate, Provision and Notify in order. The
// first failing step ends the run; nothing is retried or rolled back. A
// notification failure is logged and does not fail the run.
func (r *Runner) Run(ctx context.Context) Result {
	newID := uuid.NewString
	if r.newRunID != nil {
		newID = r.newRunID
	}
	res := Result{RunID: newID()}
	log := logger.WithRunID(r.Logger, res.RunID)
	log.Info().Msg("--- starting user creation ---")

	var rec domain.UserRecord
	err := r.step(log, StateParseInput, func() error {
		var err error
		if rec, err = r.Source.Load(ctx); err != nil {
			return err
		}
		return record.Validate(rec)
	})
	if err != nil {
		return r.fail(log, res, StateParseInput, err)
	}
	if !rec.Has(domain.KeyRecoveryEmail) && !rec.Has(domain.KeyRecoveryPhone) {
		log.Warn().
			Str("primary_email", rec.Get(domain.KeyPrimaryEmail)).
			Msg("record has no recoveryEmail or recoveryPhone; the user cannot self-reset the initial password")
	}

	var dir providers.Directory
	err = r.step(log, StateAuthenticate, func() error {
		var err error
		dir, err = r.Connect(ctx)
		return err
	})
	if err != nil {
		return r.fail(log, res, StateAuthenticate, err)
	}

	err = r.step(log, StateProvision, func() error {
		var err error
		res.User, err = dir.CreateUser(ctx, rec)
		return err
	})
	if err != nil {
		return r.fail(log, res, StateProvision, err)
	}
	log.Info().
		Str("provider", dir.Name()).
		Str("primary_email", res.User.PrimaryEmail).
		Str("user_id", res.User.ID).
		Msg("successfully created user")

	_ = r.step(log, StateNotify, func() error {
		r.notify(ctx, log, rec, &res)
		return nil
	})

	res.State = StateDone
	r.Metrics.RunFinished(string(StateDone))
	log.Info().Bool("notified", res.Notified).Msg("--- user creation finished ---")
	return res
}

func (r *Runner) notify(ctx context.Context, log zerolog.Logger, rec domain.UserRecord, res *Result) {
	to := rec.Get(domain.KeyEmailToSendCred)
	if to == "" {
		log.Warn().Msg("'EmailToSendCred' not found in the input file; skipping email notification")
		r.Metrics.Notification("skipped")
		return
	}
	if r.Notifier == nil {
		log.Warn().Str("to", to).Msg("no notifier configured; skipping email notification")
		r.Metrics.Notification("skipped")
		return
	}

	username := res.User.PrimaryEmail
	if username == "" {
		username = rec.Get(domain.KeyPrimaryEmail)
	}
	n := domain.Notification{
		To:           to,
		Username:     username,
		GivenName:    rec.Get(domain.KeyGivenName),
		PrimaryEmail: username,
	}
	if err := r.Notifier.Send(ctx, n); err != nil {
		res.NotifyErr = err
		log.Error().Err(err).Str("kind", string(apperr.KindOf(err))).Str("to", to).
			Msg("notification failed; the account was created")
		r.Metrics.Notification("failed")
		return
	}
	res.Notified = true
	r.Metrics.Notification("sent")
}

func (r *Runner) step(log zerolog.Logger, s State, fn func() error) error {
	start := time.Now()
	log.Debug().Str("step", string(s)).Msg("step started")
	err := fn()
	r.Metrics.ObserveStep(string(s), time.Since(start))
	return err
}

func (r *Runner) fail(log zerolog.Logger, res Result, at State, err error) Result {
	res.State = StateFailed
	res.FailedAt = at
	res.Err = err
	log.Error().
		Err(err).
		Str("step", string(at)).
		Str("kind", string(apperr.KindOf(err))).
		Msg("run failed")
	r.Metrics.RunFinished(string(StateFailed))
	return res
}
