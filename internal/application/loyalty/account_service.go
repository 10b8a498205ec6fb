package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AccountService handles the client directory
type AccountService struct {
	merchants loyalty.MerchantRepository
	accounts  loyalty.AccountRepository
	txScope   TransactionScope
	publisher shared.EventPublisher
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(
	merchants loyalty.MerchantRepository,
	accounts loyalty.AccountRepository,
	txScope TransactionScope,
	publisher shared.EventPublisher,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *AccountService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		merchants: merchants,
		accounts:  accounts,
		txScope:   txScope,
		publisher: publisher,
		cfg:       cfg.normalized(),
		logger:    logger,
		now:       o.now,
	}
}

// GetOrCreate returns the client matching the contact, creating it with
// welcome points when no client exists yet. Phone is matched before email.
func (s *AccountService) GetOrCreate(ctx context.Context, req GetOrCreateClientRequest) (*GetOrCreateClientResult, error) {
	merchant, err := s.merchants.FindByID(ctx, req.MerchantID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrMerchantNotFound)
	}
	settings := merchant.Settings(s.cfg.Defaults)
	if !settings.Enabled {
		return nil, loyalty.ErrLoyaltyDisabled
	}

	contact, err := loyalty.Contact{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		ExternalRef: req.UserToken,
		Language:    req.Language,
	}.Normalize()
	if err != nil {
		return nil, err
	}
	if !contact.HasChannel() {
		return nil, loyalty.ErrMissingContact
	}
	if contact.Language == "" {
		contact.Language = s.cfg.DefaultLanguage
	}

	existing, err := s.findByContact(ctx, merchant.ID, contact)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.revisit(ctx, existing, contact)
	}

	now := s.now()
	account, err := loyalty.NewAccount(merchant, contact, settings.WelcomePoints, now)
	if err != nil {
		return nil, err
	}

	err = s.insert(ctx, account, now)
	if errors.Is(err, loyalty.ErrCardIDCollision) {
		if err = account.RegenerateCardID(merchant.BusinessName, now); err != nil {
			return nil, err
		}
		err = s.insert(ctx, account, now)
	}
	if errors.Is(err, loyalty.ErrContactInUse) {
		// Lost a race with a concurrent registration of the same contact.
		existing, findErr := s.findByContact(ctx, merchant.ID, contact)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			return s.revisit(ctx, existing, contact)
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loyalty client created",
		zap.String("client_id", account.ID.String()),
		zap.String("merchant_id", merchant.ID.String()),
		zap.String("card_id", account.CardID),
		zap.Int64("welcome_points", account.Points),
	)
	s.publish(ctx, loyalty.NewAccountCreatedEvent(account, merchant.BusinessName))

	welcome := account.Points
	return &GetOrCreateClientResult{
		Client:        ToClientResponse(account),
		IsNew:         true,
		WelcomePoints: &welcome,
		CardURL:       s.cfg.CardURL(account.QRToken),
	}, nil
}

func (s *AccountService) insert(ctx context.Context, account *loyalty.Account, now time.Time) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		if account.Points == 0 {
			return nil
		}
		entry, err := loyalty.NewLedgerEntry(account, loyalty.EntryTypeWelcome, account.Points, account.Points, now)
		if err != nil {
			return err
		}
		return repos.Ledger().Create(ctx, entry)
	})
}

func (s *AccountService) revisit(ctx context.Context, account *loyalty.Account, contact loyalty.Contact) (*GetOrCreateClientResult, error) {
	account.RecordVisit(contact.ExternalRef, s.now())
	if err := s.accounts.SaveProfile(ctx, account); err != nil {
		return nil, err
	}
	return &GetOrCreateClientResult{
		Client:  ToClientResponse(account),
		IsNew:   false,
		CardURL: s.cfg.CardURL(account.QRToken),
	}, nil
}

// findByContact returns nil when neither phone nor email matches.
func (s *AccountService) findByContact(ctx context.Context, merchantID uuid.UUID, contact loyalty.Contact) (*loyalty.Account, error) {
	if contact.Phone != "" {
		account, err := s.accounts.FindByPhone(ctx, merchantID, contact.Phone)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if contact.Email != "" {
		account, err := s.accounts.FindByEmail(ctx, merchantID, contact.Email)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// Lookup finds one client. A QR token is globally unique and returns the
// merchant branding too; every other key needs a merchant.
func (s *AccountService) Lookup(ctx context.Context, q LookupClientQuery) (*LookupClientResult, error) {
	if q.QRCode != "" {
		account, err := s.accounts.FindByQRToken(ctx, q.QRCode)
		if err != nil {
			return nil, mapNotFound(err, loyalty.ErrAccountNotFound)
		}
		result := &LookupClientResult{Client: ToClientResponse(account)}
		merchant, err := s.merchants.FindByID(ctx, account.MerchantID)
		switch {
		case err == nil:
			result.Merchant = ToMerchantBrandingResponse(merchant.Branding())
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
		return result, nil
	}

	if q.MerchantID == nil {
		return nil, loyalty.ErrInvalidRequest.WithDetail("field", "merchantId")
	}

	var (
		account *loyalty.Account
		err     error
	)
	switch {
	case q.ClientID != nil:
		account, err = s.accounts.FindByID(ctx, *q.MerchantID, *q.ClientID)
	case q.Phone != "":
		account, err = s.accounts.FindByPhone(ctx, *q.MerchantID, loyalty.NormalizePhone(q.Phone))
	case q.Email != "":
		account, err = s.accounts.FindByEmail(ctx, *q.MerchantID, loyalty.NormalizeEmail(q.Email))
	default:
		return nil, loyalty.ErrInvalidRequest.WithDetail("field", "clientId")
	}
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrAccountNotFound)
	}
	return &LookupClientResult{Client: ToClientResponse(account)}, nil
}

// List pages through a merchant's clients, most recent visit first by
// default.
func (s *AccountService) List(ctx context.Context, q ListClientsQuery) (*ListClientsResult, error) {
	page := shared.Page{
		Limit:     q.Limit,
		Offset:    q.Offset,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}.Normalize(s.cfg.HistoryLimit, s.cfg.MaxPageSize)
	accounts, total, err := s.accounts.List(ctx, q.MerchantID, page)
	if err != nil {
		return nil, err
	}
	return &ListClientsResult{Clients: ToClientResponses(accounts), Total: total}, nil
}

// Update applies a profile patch. Points are never writable here.
func (s *AccountService) Update(ctx context.Context, req UpdateClientRequest) (*ClientResponse, error) {
	var (
		account *loyalty.Account
		err     error
	)
	switch {
	case req.QRCode != "":
		account, err = s.accounts.FindByQRToken(ctx, req.QRCode)
	case req.ClientID != nil && req.MerchantID != nil:
		account, err = s.accounts.FindByID(ctx, *req.MerchantID, *req.ClientID)
	default:
		return nil, loyalty.ErrInvalidRequest.WithDetail("field", "clientId")
	}
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrAccountNotFound)
	}

	patch := loyalty.AccountPatch{
		Name:              req.Updates.Name,
		Phone:             req.Updates.Phone,
		Email:             req.Updates.Email,
		Birthday:          req.Updates.Birthday,
		Status:            req.Updates.Status,
		PreferredLanguage: req.Updates.PreferredLanguage,
	}
	if patch.IsEmpty() {
		resp := ToClientResponse(account)
		return &resp, nil
	}
	if err := account.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	if err := s.accounts.SaveProfile(ctx, account); err != nil {
		return nil, err
	}

	resp := ToClientResponse(account)
	return &resp, nil
}

func (s *AccountService) publish(ctx context.Context, events ...shared.DomainEvent) {
	publishEvents(ctx, s.publisher, s.logger, events...)
}

// publishEvents never fails the caller; committed state stands regardless.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish loyalty events", zap.Error(err))
	}
}
