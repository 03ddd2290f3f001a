package instagram

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

type fakeUser struct {
	ID         string
	Username   string
	Followers  int
	Following  int
	Private    bool
	FollowedBy bool
	Media      []Node
}

// fakeSite is a minimal stand-in for the web API endpoints the client uses.
type fakeSite struct {
	mu         sync.Mutex
	users      map[string]*fakeUser
	byID       map[string]*fakeUser
	following  map[string]bool
	pages      map[string][][]string
	likes      []string
	blockPosts bool
	requests   []string
}

func newFakeSite(users ...*fakeUser) *fakeSite {
	s := &fakeSite{
		users:     make(map[string]*fakeUser),
		byID:      make(map[string]*fakeUser),
		following: make(map[string]bool),
		pages:     make(map[string][][]string),
	}
	for _, u := range users {
		s.users[u.Username] = u
		s.byID[u.ID] = u
	}
	return s
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	path := r.URL.Path
	switch {
	case path == ProfileEndpoint:
		s.profile(w, r.URL.Query().Get("username"))
	case path == GraphQLEndpoint:
		s.graph(w, r)
	case strings.HasPrefix(path, "/api/v1/friendships/show/"):
		id := strings.Trim(strings.TrimPrefix(path, "/api/v1/friendships/show/"), "/")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"following":   s.following[id],
			"followed_by": s.byID[id] != nil && s.byID[id].FollowedBy,
		})
	case strings.HasPrefix(path, "/api/v1/friendships/create/"):
		s.mutate(w, strings.Trim(strings.TrimPrefix(path, "/api/v1/friendships/create/"), "/"), true)
	case strings.HasPrefix(path, "/api/v1/friendships/destroy/"):
		s.mutate(w, strings.Trim(strings.TrimPrefix(path, "/api/v1/friendships/destroy/"), "/"), false)
	case strings.HasPrefix(path, "/web/likes/"):
		if s.blockPosts {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "fail", "message": "feedback_required", "spam": true})
			return
		}
		s.likes = append(s.likes, strings.Split(strings.Trim(path, "/"), "/")[2])
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeSite) profile(w http.ResponseWriter, username string) {
	u, ok := s.users[username]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"user": nil}, "status": "ok"})
		return
	}

	edges := make([]map[string]interface{}, 0, len(u.Media))
	for _, n := range u.Media {
		edges = append(edges, map[string]interface{}{"node": n})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				"id":                           u.ID,
				"username":                     u.Username,
				"is_private":                   u.Private,
				"edge_followed_by":             map[string]int{"count": u.Followers},
				"edge_follow":                  map[string]int{"count": u.Following},
				"edge_owner_to_timeline_media": map[string]interface{}{"count": len(u.Media), "edges": edges},
			},
		},
	})
}

func (s *fakeSite) graph(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("query_hash")
	var vars graphVariables
	_ = json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars)

	key := hash + ":" + vars.ID + vars.Shortcode
	pages := s.pages[key]
	idx := 0
	if vars.After != "" {
		idx = int(vars.After[len("cursor"):][0] - '0')
	}

	var names []string
	if idx < len(pages) {
		names = pages[idx]
	}
	edges := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		edges = append(edges, map[string]interface{}{"node": map[string]string{"id": "id-" + n, "username": n}})
	}
	hasNext := idx+1 < len(pages)
	cursor := ""
	if hasNext {
		cursor = "cursor" + string(rune('0'+idx+1))
	}
	edge := map[string]interface{}{
		"count":     0,
		"page_info": map[string]interface{}{"has_next_page": hasNext, "end_cursor": cursor},
		"edges":     edges,
	}

	var data map[string]interface{}
	switch hash {
	case FollowersQueryHash:
		data = map[string]interface{}{"user": map[string]interface{}{"edge_followed_by": edge}}
	case FollowingQueryHash:
		data = map[string]interface{}{"user": map[string]interface{}{"edge_follow": edge}}
	case LikersQueryHash:
		data = map[string]interface{}{"shortcode_media": map[string]interface{}{"edge_liked_by": edge}}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "data": data})
}

func (s *fakeSite) mutate(w http.ResponseWriter, id string, follow bool) {
	if s.blockPosts {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "fail", "message": "feedback_required", "spam": true})
		return
	}
	s.following[id] = follow
	result := "unfollowed"
	if follow {
		result = "following"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"result":            result,
		"friendship_status": map[string]bool{"following": follow},
	})
}

func (s *fakeSite) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}
