// Package shell is the navigation frame: the route table and the active
// tab of the bottom bar.
package shell

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

type Tab string

const (
	TabHome        Tab = "home"
	TabShop        Tab = "nft"
	TabAuction     Tab = "auction"
	TabLeaderboard Tab = "leaderboard"
	TabProfile     Tab = "profile"
	TabAdmin       Tab = "admin"
)

// Tabs are the entries of the bottom bar, in display order. The admin
// screen is routable but has no tab.
var Tabs = []Tab{TabHome, TabShop, TabAuction, TabLeaderboard, TabProfile}

func (t Tab) InBar() bool {
	for _, x := range Tabs {
		if x == t {
			return true
		}
	}
	return false
}

type Nav struct {
	router *mux.Router

	mu      sync.RWMutex
	active  Tab
	mounted Tab
}

func NewNav() *Nav {
	r := mux.NewRouter()
	r.Path("/").Name("root")
	for _, t := range append(Tabs, TabAdmin) {
		r.Path("/" + string(t)).Name(string(t))
	}

	return &Nav{
		router:  r,
		active:  TabHome,
		mounted: TabHome,
	}
}

// Match resolves a path to the screen it mounts. Only the first segment
// counts and "/" mounts home.
func (n *Nav) Match(path string) (Tab, bool) {
	path = normalize(path)
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return "", false
	}

	var m mux.RouteMatch
	if !n.router.Match(req, &m) || m.Route == nil {
		return "", false
	}
	if m.Route.GetName() == "root" {
		return TabHome, true
	}
	return Tab(m.Route.GetName()), true
}

// Navigate mounts the screen for path. The highlighted tab only follows
// paths that belong to the bar; an unknown path changes nothing.
func (n *Nav) Navigate(path string) (Tab, bool) {
	tab, ok := n.Match(path)
	if !ok {
		log.Printf("[Nav] no route for %q", path)
		return n.Mounted(), false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.mounted = tab
	if tab.InBar() {
		n.active = tab
	}
	return tab, true
}

func (n *Nav) Active() Tab {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

func (n *Nav) Mounted() Tab {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mounted
}

func (n *Nav) Path(t Tab) string {
	route := n.router.Get(string(t))
	if route == nil {
		return ""
	}
	u, err := route.URLPath()
	if err != nil {
		return ""
	}
	return u.Path
}

// normalize reduces a location to its first segment: "/nft/12/?x" is "/nft".
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}
