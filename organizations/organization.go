package organizations

import "time"

// Status is the lifecycle state of an organization.
type Status string

const (
	StatusTrial     Status = "TRIAL"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
)

// Inactive reports whether the status blocks all tenant access.
func (s Status) Inactive() bool {
	return s == StatusSuspended || s == StatusCancelled
}

// Plan is the subscription plan of an organization.
type Plan string

const (
	PlanFree         Plan = "FREE"
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

func (p Plan) Valid() bool {
	_, ok := planLimits[p]
	return ok
}

// Resource names a usage counter.
type Resource string

const (
	ResourceUsers     Resource = "users"
	ResourcePatients  Resource = "patients"
	ResourceStorage   Resource = "storage"
	ResourceAIQueries Resource = "aiQueries"
)

// Resources lists every counted resource.
var Resources = []Resource{ResourceUsers, ResourcePatients, ResourceStorage, ResourceAIQueries}

func (r Resource) Valid() bool {
	switch r {
	case ResourceUsers, ResourcePatients, ResourceStorage, ResourceAIQueries:
		return true
	}
	return false
}

// Usage is the current and maximum value of one counter.
type Usage struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (u Usage) Exceeded() bool {
	return u.Current >= u.Max
}

// Limits are the maximum counter values for a plan.
type Limits struct {
	Users     int
	Patients  int
	StorageMB int
	AIQueries int
}

var planLimits = map[Plan]Limits{
	PlanFree:         {Users: 1, Patients: 25, StorageMB: 100, AIQueries: 0},
	PlanStarter:      {Users: 3, Patients: 100, StorageMB: 1024, AIQueries: 100},
	PlanProfessional: {Users: 10, Patients: 500, StorageMB: 10240, AIQueries: 500},
	PlanEnterprise:   {Users: 100, Patients: 10000, StorageMB: 102400, AIQueries: 5000},
}

// LimitsFor returns the default limits of plan; unknown plans get the FREE limits.
func LimitsFor(plan Plan) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Organization is a tenant. All domain data is scoped to exactly one organization.
type Organization struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Subdomain            string     `json:"subdomain"`
	CustomDomain         *string    `json:"customDomain,omitempty"`
	CustomDomainVerified bool       `json:"customDomainVerified"`
	Status               Status     `json:"status"`
	Plan                 Plan       `json:"plan"`
	TrialEndsAt          *time.Time `json:"trialEndsAt,omitempty"`

	CurrentUsers     int       `json:"currentUsers"`
	MaxUsers         int       `json:"maxUsers"`
	CurrentPatients  int       `json:"currentPatients"`
	MaxPatients      int       `json:"maxPatients"`
	CurrentStorageMB int       `json:"currentStorageMB"`
	MaxStorageMB     int       `json:"maxStorageMB"`
	CurrentAIQueries int       `json:"currentAIQueries"`
	MaxAIQueries     int       `json:"maxAIQueries"`
	AIQueriesResetAt time.Time `json:"aiQueriesResetAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ApplyLimits sets the max counters from plan defaults.
func (o *Organization) ApplyLimits(l Limits) {
	o.MaxUsers = l.Users
	o.MaxPatients = l.Patients
	o.MaxStorageMB = l.StorageMB
	o.MaxAIQueries = l.AIQueries
}

// Usage returns the counter for resource. Unknown resources report a zero usage.
func (o *Organization) Usage(resource Resource) Usage {
	switch resource {
	case ResourceUsers:
		return Usage{Current: o.CurrentUsers, Max: o.MaxUsers}
	case ResourcePatients:
		return Usage{Current: o.CurrentPatients, Max: o.MaxPatients}
	case ResourceStorage:
		return Usage{Current: o.CurrentStorageMB, Max: o.MaxStorageMB}
	case ResourceAIQueries:
		return Usage{Current: o.CurrentAIQueries, Max: o.MaxAIQueries}
	}
	return Usage{}
}

// AddUsage adds delta to the resource counter, never dropping below zero.
func (o *Organization) AddUsage(resource Resource, delta int) {
	add := func(v *int) {
		*v += delta
		if *v < 0 {
			*v = 0
		}
	}
	switch resource {
	case ResourceUsers:
		add(&o.CurrentUsers)
	case ResourcePatients:
		add(&o.CurrentPatients)
	case ResourceStorage:
		add(&o.CurrentStorageMB)
	case ResourceAIQueries:
		add(&o.CurrentAIQueries)
	}
}

// TrialExpired is true only for a TRIAL organization whose trial end is in the past.
func (o *Organization) TrialExpired(now time.Time) bool {
	return o.Status == StatusTrial && o.TrialEndsAt != nil && o.TrialEndsAt.Before(now)
}
