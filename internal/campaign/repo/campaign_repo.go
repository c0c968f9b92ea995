package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign/entity"
)

const campaignColumns = `id, campaign_name, campaign_description, funding_goal, amount_needed,
	completion_date, risks_and_challenges, milestone_title, category,
	team_information, expected_impact, creator_id, created_at, updated_at`

// CampaignRepo provides data access for the campaigns table using sqlx.
type CampaignRepo struct {
	db *sqlx.DB
}

func NewCampaignRepo(db *sqlx.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// Create inserts c. The caller assigns ID, creator and timestamps.
func (r *CampaignRepo) Create(ctx context.Context, c *entity.Campaign) error {
	const q = `INSERT INTO campaigns (` + campaignColumns + `)
		VALUES (:id, :campaign_name, :campaign_description, :funding_goal, :amount_needed,
			:completion_date, :risks_and_challenges, :milestone_title, :category,
			:team_information, :expected_impact, :creator_id, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, c)
	return err
}

// List returns every campaign, oldest first.
func (r *CampaignRepo) List(ctx context.Context) ([]*entity.Campaign, error) {
	out := []*entity.Campaign{}
	const q = `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCreator returns the campaigns created by userID, oldest first.
func (r *CampaignRepo) ListByCreator(ctx context.Context, userID string) ([]*entity.Campaign, error) {
	out := []*entity.Campaign{}
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE creator_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the campaign or sql.ErrNoRows.
func (r *CampaignRepo) GetByID(ctx context.Context, id string) (*entity.Campaign, error) {
	var c entity.Campaign
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update overwrites the mutable columns of c. It returns sql.ErrNoRows when
// the row no longer exists.
func (r *CampaignRepo) Update(ctx context.Context, c *entity.Campaign) error {
	const q = `UPDATE campaigns SET
			campaign_name = :campaign_name,
			campaign_description = :campaign_description,
			funding_goal = :funding_goal,
			amount_needed = :amount_needed,
			completion_date = :completion_date,
			risks_and_challenges = :risks_and_challenges,
			milestone_title = :milestone_title,
			category = :category,
			team_information = :team_information,
			expected_impact = :expected_impact,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the campaign and returns it, or sql.ErrNoRows.
func (r *CampaignRepo) Delete(ctx context.Context, id string) (*entity.Campaign, error) {
	var c entity.Campaign
	const q = `DELETE FROM campaigns WHERE id = $1 RETURNING ` + campaignColumns
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, err
	}
	return &c, nil
}
