package entitlements

import (
	"sort"

	"github.com/jrsteele09/dietitian-server/organizations"
)

const (
	FeaturePatientManagement  = "patient_management"
	FeatureDietPlans          = "diet_plans"
	FeatureBasicReports       = "basic_reports"
	FeatureAIDietPlans        = "ai_diet_plans"
	FeatureAppointments       = "appointments"
	FeatureMessaging          = "messaging"
	FeatureVideoConsultation  = "video_consultation"
	FeatureWhiteLabel         = "white_label"
	FeatureCustomDomain       = "custom_domain"
	FeatureAdvancedReports    = "advanced_reports"
	FeatureAPIAccess          = "api_access"
	FeaturePrioritySupport    = "priority_support"
	FeatureCustomIntegrations = "custom_integrations"
)

// planOrder lists plans from lowest to highest; each plan includes every feature of
// the plans before it.
var planOrder = []organizations.Plan{
	organizations.PlanFree,
	organizations.PlanStarter,
	organizations.PlanProfessional,
	organizations.PlanEnterprise,
}

var planAdds = map[organizations.Plan][]string{
	organizations.PlanFree:         {FeaturePatientManagement, FeatureDietPlans, FeatureBasicReports},
	organizations.PlanStarter:      {FeatureAIDietPlans, FeatureAppointments, FeatureMessaging},
	organizations.PlanProfessional: {FeatureVideoConsultation, FeatureWhiteLabel, FeatureCustomDomain, FeatureAdvancedReports},
	organizations.PlanEnterprise:   {FeatureAPIAccess, FeaturePrioritySupport, FeatureCustomIntegrations},
}

var planFeatures = buildPlanFeatures()

func buildPlanFeatures() map[organizations.Plan]map[string]struct{} {
	out := make(map[organizations.Plan]map[string]struct{}, len(planOrder))
	acc := map[string]struct{}{}
	for _, plan := range planOrder {
		for _, f := range planAdds[plan] {
			acc[f] = struct{}{}
		}
		set := make(map[string]struct{}, len(acc))
		for f := range acc {
			set[f] = struct{}{}
		}
		out[plan] = set
	}
	return out
}

// HasFeature reports whether plan includes feature. Unknown plans and features are false.
func HasFeature(plan organizations.Plan, feature string) bool {
	_, ok := planFeatures[plan][feature]
	return ok
}

// Features returns the sorted feature set of plan.
func Features(plan organizations.Plan) []string {
	set := planFeatures[plan]
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
