package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/repo"
)

var tracer = otel.Tracer("usecase")

// AccountRegistrationOrchestrator sequences a registration end to end:
// fail-fast checks, DID acquisition, credential hashing, then one
// transaction covering the locked invite check, the account row, the
// registry submission, the invite use, the repository seed, and the token
// grant. Any failure before commit leaves no durable state.
type AccountRegistrationOrchestrator struct {
	config    domain.Config
	store     Store
	handles   *HandleValidator
	dids      *DidProvisioner
	invites   *InviteAdmissionController
	hasher    Hasher
	registry  Registry
	repos     RepoSeeder
	sessions  SessionIssuer
	sequencer Sequencer

	now func() time.Time
}

func NewAccountRegistrationOrchestrator(
	config domain.Config,
	store Store,
	handles *HandleValidator,
	dids *DidProvisioner,
	invites *InviteAdmissionController,
	hasher Hasher,
	registry Registry,
	repos RepoSeeder,
	sessions SessionIssuer,
	sequencer Sequencer,
) *AccountRegistrationOrchestrator {
	return &AccountRegistrationOrchestrator{
		config:    config,
		store:     store,
		handles:   handles,
		dids:      dids,
		invites:   invites,
		hasher:    hasher,
		registry:  registry,
		repos:     repos,
		sessions:  sessions,
		sequencer: sequencer,
		now:       time.Now,
	}
}

// RegisterInput is the validated wire request for createAccount.
type RegisterInput struct {
	Email       string
	Password    string
	Handle      string
	InviteCode  string
	Did         string
	RecoveryKey string
}

func (o *AccountRegistrationOrchestrator) Register(ctx context.Context, input RegisterInput) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Account.Register")
	defer span.End()

	if input.Email == "" || input.Password == "" {
		return domain.Session{}, domain.ErrInvalidRequest.WithMessage("email and password are required")
	}
	if o.config.InviteRequired && input.InviteCode == "" {
		return domain.Session{}, domain.ErrInvalidInviteCode
	}

	handle, err := o.handles.Validate(ctx, input.Handle, input.Did)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	if o.config.InviteRequired {
		if err := o.invites.CheckAvailable(ctx, input.InviteCode); err != nil {
			span.RecordError(err)
			return domain.Session{}, err
		}
	}

	provisioned, err := o.dids.Provision(ctx, handle, input.Did, input.RecoveryKey)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	hash, err := o.hasher.HashPassword(input.Password)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, errors.Wrap(err, "hash credential")
	}

	var session domain.Session
	var commit repo.CommitData
	err = o.store.WithTransaction(ctx, func(tx Store) error {
		if o.config.InviteRequired {
			if err := o.invites.CheckAvailableForUpdate(ctx, tx, input.InviteCode); err != nil {
				return err
			}
		}

		account := domain.Account{
			Did:            provisioned.Did,
			Handle:         handle,
			Email:          input.Email,
			CredentialHash: hash,
		}
		if input.RecoveryKey != "" {
			account.RecoveryKey = &input.RecoveryKey
		}
		if err := tx.RegisterAccount(ctx, account); err != nil {
			return o.classifyConflict(ctx, tx, handle, input.Email, err)
		}

		if provisioned.PendingOp != nil {
			// irreversible network side effect; a failure here is fatal and
			// never retried, since a blind retry risks a duplicate registry
			// mutation
			if err := o.registry.SendOperation(ctx, provisioned.Did, *provisioned.PendingOp); err != nil {
				var traceID string
				if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
					traceID = sc.TraceID().String()
				}
				slog.Error("registry submission failed",
					slog.String("did", provisioned.Did),
					slog.String("handle", handle),
					slog.String("rotationKey", o.config.RotationDidKey),
					slog.String("traceID", traceID),
					slog.String("error", err.Error()),
					slog.String("module", "account"),
				)
				return errors.Wrap(err, "submit registry operation")
			}
		}

		if o.config.InviteRequired {
			use := domain.InviteCodeUse{
				Code:   input.InviteCode,
				UsedBy: provisioned.Did,
				UsedAt: o.now(),
			}
			if err := tx.RecordInviteCodeUse(ctx, use); err != nil {
				return errors.Wrap(err, "record invite use")
			}
		}

		commit, err = o.repos.CreateRepo(provisioned.Did, o.now())
		if err != nil {
			return errors.Wrap(err, "seed repository")
		}
		root := domain.RepoRoot{Did: commit.Did, Cid: commit.Cid, Rev: commit.Rev}
		if err := tx.SaveRepoRoot(ctx, root, commit.Blocks); err != nil {
			return errors.Wrap(err, "save repository root")
		}

		access, err := o.sessions.CreateAccessToken(provisioned.Did)
		if err != nil {
			return errors.Wrap(err, "mint access token")
		}
		refresh, record, err := o.sessions.CreateRefreshToken(provisioned.Did)
		if err != nil {
			return errors.Wrap(err, "mint refresh token")
		}
		if err := tx.GrantRefreshToken(ctx, record); err != nil {
			return errors.Wrap(err, "grant refresh token")
		}

		session = domain.Session{
			Did:        provisioned.Did,
			Handle:     handle,
			AccessJwt:  access,
			RefreshJwt: refresh,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, err
	}

	o.sequence(ctx, provisioned.Did, handle, commit)

	return session, nil
}

// classifyConflict turns the store's undifferentiated uniqueness violation
// into a handle- or email-specific failure. The re-query includes
// soft-deleted rows so a tombstoned handle still reads as taken.
func (o *AccountRegistrationOrchestrator) classifyConflict(ctx context.Context, tx Store, handle, email string, err error) error {
	if !errors.Is(err, domain.ErrAccountAlreadyExists) {
		return errors.Wrap(err, "register account")
	}
	existing, qerr := tx.GetAccountByHandle(ctx, handle, true)
	if qerr != nil {
		return domain.ErrAccountAlreadyExists
	}
	if existing != nil {
		return domain.ErrAccountAlreadyExists.WithMessage("handle %s is taken", handle)
	}
	return domain.ErrAccountAlreadyExists.WithMessage("email %s is already registered", email)
}

func (o *AccountRegistrationOrchestrator) sequence(ctx context.Context, did, handle string, commit repo.CommitData) {
	if o.sequencer == nil {
		return
	}
	if err := o.sequencer.SequenceIdentity(ctx, did, handle); err != nil {
		slog.Error("sequence identity event failed", slog.String("did", did), slog.String("error", err.Error()), slog.String("module", "account"))
	}
	if err := o.sequencer.SequenceAccount(ctx, did, true); err != nil {
		slog.Error("sequence account event failed", slog.String("did", did), slog.String("error", err.Error()), slog.String("module", "account"))
	}
	if err := o.sequencer.SequenceCommit(ctx, commit); err != nil {
		slog.Error("sequence commit event failed", slog.String("did", did), slog.String("error", err.Error()), slog.String("module", "account"))
	}
}
