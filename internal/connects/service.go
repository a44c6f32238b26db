package connects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/commissions"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type vendorStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	SetStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error
}

type formLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentForm, error)
}

// Service manages connects and the vendors they pay out to.
type Service interface {
	CreateNewConnect(ctx context.Context, kind enums.ProductKind) (*models.Connect, error)
	GetConnectByID(ctx context.Context, id uuid.UUID) (*models.Connect, error)
	ListConnects(ctx context.Context) ([]models.Connect, error)
	FindConnectByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error)
	GetVendor(ctx context.Context, connect *models.Connect) (*models.Vendor, error)
	ProductKindOptions() []ProductKindOption
	UpdateConnect(ctx context.Context, id uuid.UUID, input UpdateConnectInput) (*models.Connect, error)
	DeleteConnect(ctx context.Context, id uuid.UUID) error
	VendorOnboardingURL(ctx context.Context, vendorID uuid.UUID) (string, error)
	LinkVendorAccount(ctx context.Context, vendorID uuid.UUID, code string) (*models.Vendor, error)
}

// ServiceParams groups the connect service dependencies.
type ServiceParams struct {
	Repo        Repository
	Commissions commissions.Repository
	Vendors     vendorStore
	Forms       formLoader
	OAuth       OAuthClient
	Settings    settings.Provider
	Tx          txRunner
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	commissions commissions.Repository
	vendors     vendorStore
	forms       formLoader
	oauth       OAuthClient
	settings    settings.Provider
	tx          txRunner
	logger      *logger.Logger
}

var maxRate = decimal.NewFromInt(100)

// ratePlaces matches the precision Stripe takes for application_fee_percent.
const ratePlaces = 2

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("connects repository required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor store required")
	}
	if params.Forms == nil {
		return nil, fmt.Errorf("payment form loader required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:        params.Repo,
		commissions: params.Commissions,
		vendors:     params.Vendors,
		forms:       params.Forms,
		oauth:       params.OAuth,
		settings:    params.Settings,
		tx:          params.Tx,
		logger:      params.Logger,
	}, nil
}

// CreateNewConnect starts a connect disabled at the configured default rate.
func (s *service) CreateNewConnect(ctx context.Context, kind enums.ProductKind) (*models.Connect, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported product kind").
			WithDetails(map[string]any{"product_kind": string(kind)})
	}
	connect := &models.Connect{
		ProductKind: kind,
		Enabled:     false,
		Rate:        s.settings.DefaultRate(),
	}
	created, err := s.repo.Create(ctx, connect)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create connect")
	}
	s.logger.Info(s.logger.WithConnectID(ctx, created.ID.String()), "connect created")
	return created, nil
}

func (s *service) GetConnectByID(ctx context.Context, id uuid.UUID) (*models.Connect, error) {
	connect, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load connect")
	}
	if connect == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connect not found")
	}
	return connect, nil
}

func (s *service) ListConnects(ctx context.Context) ([]models.Connect, error) {
	connects, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list connects")
	}
	return connects, nil
}

// FindConnectByProductFormID returns the enabled connect governing the form, if any.
func (s *service) FindConnectByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error) {
	connect, err := s.repo.FindEnabledByProductFormID(ctx, formID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load connect for form")
	}
	return connect, nil
}

// GetVendor resolves the connect's vendor; a missing vendor is (nil, nil).
func (s *service) GetVendor(ctx context.Context, connect *models.Connect) (*models.Vendor, error) {
	if connect == nil || connect.VendorID == nil {
		return nil, nil
	}
	vendor, err := s.vendors.FindByID(ctx, *connect.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) ProductKindOptions() []ProductKindOption {
	kinds := enums.ProductKinds()
	options := make([]ProductKindOption, 0, len(kinds))
	for _, kind := range kinds {
		options = append(options, ProductKindOption{Label: kind.Label(), Value: kind.String()})
	}
	return options
}

func (s *service) UpdateConnect(ctx context.Context, id uuid.UUID, input UpdateConnectInput) (*models.Connect, error) {
	connect, err := s.GetConnectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ProductKind != nil {
		kind, err := enums.ParseProductKind(strings.TrimSpace(*input.ProductKind))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product kind")
		}
		connect.ProductKind = kind
	}
	if input.Rate != nil {
		rate := *input.Rate
		if rate.LessThan(decimal.Zero) || rate.GreaterThan(maxRate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be between 0 and 100").
				WithDetails(map[string]any{"rate": rate.String()})
		}
		if !rate.Equal(rate.Round(ratePlaces)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate allows at most two decimal places").
				WithDetails(map[string]any{"rate": rate.String()})
		}
		connect.Rate = rate
	}
	if input.ProductFormID.Valid {
		if input.ProductFormID.Value != nil {
			form, err := s.forms.FindByID(ctx, *input.ProductFormID.Value)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment form")
			}
			if form == nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment form not found")
			}
		}
		connect.ProductFormID = input.ProductFormID.Value
	}
	if input.VendorID.Valid {
		if input.VendorID.Value != nil {
			vendor, err := s.vendors.FindByID(ctx, *input.VendorID.Value)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
			}
			if vendor == nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor not found")
			}
		}
		connect.VendorID = input.VendorID.Value
	}
	if input.Enabled != nil {
		connect.Enabled = *input.Enabled
	}
	if connect.Enabled && connect.ProductFormID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an enabled connect needs a payment form")
	}

	if err := s.repo.Update(ctx, connect); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update connect")
	}
	s.logger.Info(s.logger.WithConnectID(ctx, connect.ID.String()), "connect updated")
	return connect, nil
}

// DeleteConnect removes the connect and every commission recorded under it in
// one transaction. Any shortfall rolls the whole delete back.
func (s *service) DeleteConnect(ctx context.Context, id uuid.UUID) error {
	ctx = s.logger.WithConnectID(ctx, id.String())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		connectsRepo := s.repo.WithTx(tx)
		commissionsRepo := s.commissions.WithTx(tx)

		connect, err := connectsRepo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load connect")
		}
		if connect == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "connect not found")
		}

		ids, err := commissionsRepo.ListIDsByConnect(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commissions")
		}
		deleted, err := commissionsRepo.DeleteByConnect(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete commissions")
		}
		if deleted != int64(len(ids)) {
			return pkgerrors.New(pkgerrors.CodeInternal, "commission delete count mismatch").
				WithDetails(map[string]any{"expected": len(ids), "deleted": deleted})
		}

		rows, err := connectsRepo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete connect")
		}
		if rows != 1 {
			return pkgerrors.New(pkgerrors.CodeInternal, "connect row not deleted")
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "connect delete rolled back", err)
		return err
	}

	s.logger.Info(ctx, "connect deleted")
	return nil
}

// VendorOnboardingURL returns the Stripe authorize link for the vendor. The
// vendor id travels as state and comes back on the OAuth callback.
func (s *service) VendorOnboardingURL(ctx context.Context, vendorID uuid.UUID) (string, error) {
	if s.oauth == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "stripe connect oauth not configured")
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
	}
	if vendor == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	link, err := s.oauth.AuthorizeURL(vendor.ID.String())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe connect oauth not configured")
	}
	return link, nil
}

// LinkVendorAccount completes Connect onboarding for the vendor.
func (s *service) LinkVendorAccount(ctx context.Context, vendorID uuid.UUID, code string) (*models.Vendor, error) {
	if s.oauth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe connect oauth not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code required")
	}

	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
	}
	if vendor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}

	accountID, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		if pkgstripe.IsInvalidGrant(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "authorization code rejected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exchange authorization code")
	}
	if strings.TrimSpace(accountID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned no account id")
	}

	if err := s.vendors.SetStripeAccount(ctx, vendor.ID, accountID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store stripe account")
	}
	vendor.StripeAccountID = &accountID

	s.logger.Info(s.logger.WithField(ctx, "vendor_id", vendor.ID.String()), "vendor stripe account linked")
	return vendor, nil
}
