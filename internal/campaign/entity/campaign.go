package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Campaign is a crowdfunding campaign row in the `campaigns` table.
type Campaign struct {
	ID                  string    `db:"id" json:"_id"`
	CampaignName        string    `db:"campaign_name" json:"campaignName"`
	CampaignDescription string    `db:"campaign_description" json:"campaignDescription"`
	FundingGoal         Amount    `db:"funding_goal" json:"fundingGoal"`
	AmountNeeded        Amount    `db:"amount_needed" json:"amountNeeded"`
	CompletionDate      time.Time `db:"completion_date" json:"completionDate"`
	RisksAndChallenges  string    `db:"risks_and_challenges" json:"risksAndChallenges"`
	MilestoneTitle      string    `db:"milestone_title" json:"milestoneTitle"`
	Category            string    `db:"category" json:"category"`
	TeamInformation     string    `db:"team_information" json:"teamInformation"`
	ExpectedImpact      string    `db:"expected_impact" json:"expectedImpact"`
	Creator             string    `db:"creator_id" json:"creator"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Amount is a money figure. It decodes from a JSON number or a numeric string
// because form-driven clients often send the latter.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("amount %q is not a number", s)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("amount %s is not finite", b)
	}
	*a = Amount(f)
	return nil
}

// ParseDate parses a completionDate given as YYYY-MM-DD or RFC3339, as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range [...]string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC3339", s)
}
