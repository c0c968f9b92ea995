package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign/entity"
	userentity "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-campaign-go/pkg/utilities"
)

// Store persists campaigns. Single-row reads, Update and Delete return
// sql.ErrNoRows for an unknown id.
type Store interface {
	Create(ctx context.Context, c *entity.Campaign) error
	List(ctx context.Context) ([]*entity.Campaign, error)
	ListByCreator(ctx context.Context, userID string) ([]*entity.Campaign, error)
	GetByID(ctx context.Context, id string) (*entity.Campaign, error)
	Update(ctx context.Context, c *entity.Campaign) error
	Delete(ctx context.Context, id string) (*entity.Campaign, error)
}

// CreatorLookup finds the account a new campaign is filed under.
type CreatorLookup interface {
	GetByEmail(ctx context.Context, email string) (*userentity.User, error)
}

var (
	ErrNotFound       = errors.New("campaign not found")
	ErrUnknownCreator = errors.New("creator does not exist")
)

// Service implements campaign CRUD.
type Service struct {
	store   Store
	users   CreatorLookup
	ids     *utilities.IDGenerator
	timeout time.Duration
}

func NewService(store Store, users CreatorLookup, ids *utilities.IDGenerator, timeout time.Duration) *Service {
	return &Service{store: store, users: users, ids: ids, timeout: timeout}
}

// CreateInput is the campaign creation payload. Email names the creator.
type CreateInput struct {
	CampaignName        string        `json:"campaignName"`
	CampaignDescription string        `json:"campaignDescription"`
	FundingGoal         entity.Amount `json:"fundingGoal"`
	AmountNeeded        entity.Amount `json:"amountNeeded"`
	CompletionDate      string        `json:"completionDate"`
	RisksAndChallenges  string        `json:"risksAndChallenges"`
	MilestoneTitle      string        `json:"milestoneTitle"`
	Category            string        `json:"category"`
	TeamInformation     string        `json:"teamInformation"`
	ExpectedImpact      string        `json:"expectedImpact"`
	Email               string        `json:"email"`
}

func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CampaignName, validation.Required),
		validation.Field(&in.CampaignDescription, validation.Required),
		validation.Field(&in.FundingGoal, validation.Required, validation.Min(entity.Amount(0)).Exclusive()),
		validation.Field(&in.AmountNeeded, validation.Required, validation.Min(entity.Amount(0)).Exclusive()),
		validation.Field(&in.CompletionDate, validation.Required, validation.By(dateRule)),
		validation.Field(&in.RisksAndChallenges, validation.Required),
		validation.Field(&in.MilestoneTitle, validation.Required),
		validation.Field(&in.Category, validation.Required),
		validation.Field(&in.TeamInformation, validation.Required),
		validation.Field(&in.ExpectedImpact, validation.Required),
		validation.Field(&in.Email, validation.Required),
	)
}

// UpdateInput is a partial update: nil fields are left as they are.
type UpdateInput struct {
	CampaignName        *string        `json:"campaignName"`
	CampaignDescription *string        `json:"campaignDescription"`
	FundingGoal         *entity.Amount `json:"fundingGoal"`
	AmountNeeded        *entity.Amount `json:"amountNeeded"`
	CompletionDate      *string        `json:"completionDate"`
	RisksAndChallenges  *string        `json:"risksAndChallenges"`
	MilestoneTitle      *string        `json:"milestoneTitle"`
	Category            *string        `json:"category"`
	TeamInformation     *string        `json:"teamInformation"`
	ExpectedImpact      *string        `json:"expectedImpact"`
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CampaignName, validation.NilOrNotEmpty),
		validation.Field(&in.CampaignDescription, validation.NilOrNotEmpty),
		validation.Field(&in.FundingGoal, validation.NilOrNotEmpty, validation.Min(entity.Amount(0)).Exclusive()),
		validation.Field(&in.AmountNeeded, validation.NilOrNotEmpty, validation.Min(entity.Amount(0)).Exclusive()),
		validation.Field(&in.CompletionDate, validation.NilOrNotEmpty, validation.By(dateRule)),
		validation.Field(&in.RisksAndChallenges, validation.NilOrNotEmpty),
		validation.Field(&in.MilestoneTitle, validation.NilOrNotEmpty),
		validation.Field(&in.Category, validation.NilOrNotEmpty),
		validation.Field(&in.TeamInformation, validation.NilOrNotEmpty),
		validation.Field(&in.ExpectedImpact, validation.NilOrNotEmpty),
	)
}

// Create files a new campaign under the user registered as in.Email.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Campaign, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := apperr.Validation(in.Validate(), "All fields are required"); err != nil {
		return nil, err
	}
	due, _ := entity.ParseDate(in.CompletionDate)

	ctx, cancel := s.bound(ctx)
	defer cancel()

	creator, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Wrap(ErrUnknownCreator, apperr.KindUnknownCreator, "User does not exist")
		}
		return nil, apperr.Internal(fmt.Errorf("lookup creator: %w", err))
	}

	now := time.Now().UTC()
	c := &entity.Campaign{
		ID:                  s.ids.NewID(),
		CampaignName:        in.CampaignName,
		CampaignDescription: in.CampaignDescription,
		FundingGoal:         in.FundingGoal,
		AmountNeeded:        in.AmountNeeded,
		CompletionDate:      due,
		RisksAndChallenges:  in.RisksAndChallenges,
		MilestoneTitle:      in.MilestoneTitle,
		Category:            in.Category,
		TeamInformation:     in.TeamInformation,
		ExpectedImpact:      in.ExpectedImpact,
		Creator:             creator.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create campaign: %w", err))
	}
	return c, nil
}

// List returns all campaigns.
func (s *Service) List(ctx context.Context) ([]*entity.Campaign, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list campaigns: %w", err))
	}
	return out, nil
}

// ListByCreator returns the campaigns owned by userID, in creation order.
func (s *Service) ListByCreator(ctx context.Context, userID string) ([]*entity.Campaign, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	out, err := s.store.ListByCreator(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list user campaigns: %w", err))
	}
	return out, nil
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id string) (*entity.Campaign, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return c, nil
}

// Update applies the supplied fields of in to campaign id.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*entity.Campaign, error) {
	if err := apperr.Validation(in.Validate(), "Invalid campaign fields"); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	in.apply(c)
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, c); err != nil {
		return nil, lookupError(err)
	}
	return c, nil
}

// Delete removes campaign id and returns it.
func (s *Service) Delete(ctx context.Context, id string) (*entity.Campaign, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	c, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return c, nil
}

func (in UpdateInput) apply(c *entity.Campaign) {
	setString(&c.CampaignName, in.CampaignName)
	setString(&c.CampaignDescription, in.CampaignDescription)
	setString(&c.RisksAndChallenges, in.RisksAndChallenges)
	setString(&c.MilestoneTitle, in.MilestoneTitle)
	setString(&c.Category, in.Category)
	setString(&c.TeamInformation, in.TeamInformation)
	setString(&c.ExpectedImpact, in.ExpectedImpact)
	if in.FundingGoal != nil {
		c.FundingGoal = *in.FundingGoal
	}
	if in.AmountNeeded != nil {
		c.AmountNeeded = *in.AmountNeeded
	}
	if in.CompletionDate != nil {
		if due, err := entity.ParseDate(*in.CompletionDate); err == nil {
			c.CompletionDate = due
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func lookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(ErrNotFound, apperr.KindNotFound, "Campaign not found")
	}
	return apperr.Internal(err)
}

func dateRule(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s == "" {
		return nil
	}
	_, err := entity.ParseDate(s)
	return err
}
