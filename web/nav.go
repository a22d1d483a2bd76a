package web

// Route paths.
const (
	PathHome      = "/"
	PathDashboard = "/dashboard"
)

// NavItem is one button of the navigation bar.
type NavItem struct {
	Label  string
	Path   string
	Icon   string
	Active bool
}

var navRoutes = []NavItem{
	{Label: "Home", Path: PathHome, Icon: "⌂"},
	{Label: "Dashboard", Path: PathDashboard, Icon: "▦"},
}

// Navigation returns the navigation bar for a request path. An item is
// active only when its path equals the current one exactly.
func Navigation(current string) []NavItem {
	items := make([]NavItem, len(navRoutes))
	for i, item := range navRoutes {
		item.Active = item.Path == current
		items[i] = item
	}
	return items
}
