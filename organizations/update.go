package organizations

import (
	"time"

	"github.com/jrsteele09/dietitian-server/internal/utils"
)

// Update is a partial update of an Organization; unset fields are left untouched. Setting
// Plan also resets the max counters to that plan's limits.
type Update struct {
	Name                 utils.Optional[string]
	CustomDomain         utils.Optional[*string]
	CustomDomainVerified utils.Optional[bool]
	Status               utils.Optional[Status]
	Plan                 utils.Optional[Plan]
	TrialEndsAt          utils.Optional[*time.Time]
	CurrentAIQueries     utils.Optional[int]
	AIQueriesResetAt     utils.Optional[time.Time]
}

func (up Update) IsEmpty() bool {
	return !up.Name.IsSet() &&
		!up.CustomDomain.IsSet() &&
		!up.CustomDomainVerified.IsSet() &&
		!up.Status.IsSet() &&
		!up.Plan.IsSet() &&
		!up.TrialEndsAt.IsSet() &&
		!up.CurrentAIQueries.IsSet() &&
		!up.AIQueriesResetAt.IsSet()
}

func (up Update) Apply(o *Organization) {
	up.Name.ApplyTo(&o.Name)
	up.CustomDomain.ApplyTo(&o.CustomDomain)
	up.CustomDomainVerified.ApplyTo(&o.CustomDomainVerified)
	up.Status.ApplyTo(&o.Status)
	if plan, ok := up.Plan.Get(); ok {
		o.Plan = plan
		o.ApplyLimits(LimitsFor(plan))
	}
	up.TrialEndsAt.ApplyTo(&o.TrialEndsAt)
	up.CurrentAIQueries.ApplyTo(&o.CurrentAIQueries)
	up.AIQueriesResetAt.ApplyTo(&o.AIQueriesResetAt)
}
