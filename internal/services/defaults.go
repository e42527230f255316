package services

import "github.com/madigan/timely/internal/models"

// defaultCategories are seeded for every new user on first login. Targets
// sum to 100 so the analytics view starts out meaningful.
var defaultCategories = []models.CategoryInput{
	{
		Name:     "Worship Services",
		Color:    "#3B82F6",
		Keywords: []string{"worship", "service", "sunday", "mass", "sermon", "prayer meeting"},
		Target:   40,
	},
	{
		Name:     "Fellowship",
		Color:    "#10B981",
		Keywords: []string{"fellowship", "social", "community", "potluck", "gathering", "small group"},
		Target:   25,
	},
	{
		Name:     "Community Outreach",
		Color:    "#F59E0B",
		Keywords: []string{"outreach", "mission", "volunteer", "community service", "evangelism", "food bank"},
		Target:   20,
	},
	{
		Name:     "Education & Study",
		Color:    "#8B5CF6",
		Keywords: []string{"bible study", "education", "class", "seminar", "training", "conference"},
		Target:   10,
	},
	{
		Name:     "Music & Arts",
		Color:    "#EC4899",
		Keywords: []string{"music", "choir", "band", "art", "creative", "performance"},
		Target:   5,
	},
}

// defaultImportantKeywords seed the important-event settings row created
// lazily on first access.
var defaultImportantKeywords = []string{
	"important",
	"urgent",
	"critical",
	"deadline",
	"meeting",
	"board",
	"emergency",
}

// defaultDisplayLimit caps how many important events the dashboard widget
// shows unless the user changes it.
const defaultDisplayLimit = 3

// defaultImportantSettings builds the settings row seeded at first login
// and recreated lazily if the row ever goes missing.
func defaultImportantSettings() *models.ImportantEventSettingsInput {
	return &models.ImportantEventSettingsInput{
		Keywords:     defaultImportantKeywords,
		Enabled:      true,
		DisplayLimit: defaultDisplayLimit,
	}
}
