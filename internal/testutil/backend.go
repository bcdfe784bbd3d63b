package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Route names accepted by Fail, Block and Calls.
const (
	RouteLogin          = "login"
	RouteSignup         = "signup"
	RouteLogout         = "logout"
	RouteMe             = "me"
	RouteProfile        = "profile"
	RouteUser           = "user"
	RouteUpdateProfile  = "update-profile"
	RoutePrivacy        = "privacy"
	RouteAvatar         = "avatar"
	RouteFollowers      = "followers"
	RouteFollowing      = "following"
	RouteFollow         = "follow"
	RouteUnfollow       = "unfollow"
	RouteSendRequest    = "send-request"
	RouteAcceptRequest  = "accept-request"
	RouteRejectRequest  = "reject-request"
	RoutePendingRequest = "pending-requests"
	RouteSentRequests   = "sent-requests"
	RouteFriends        = "friends"
	RouteFeed           = "feed"
	RouteUserPosts      = "user-posts"
	RouteMyPosts        = "my-posts"
	RouteSearch         = "search"
)

type fakeUser struct {
	id         int64
	username   string
	email      string
	password   string
	fullName   string
	bio        string
	profilePic string
	private    bool
}

type fakeRequest struct {
	id       int64
	sender   int64
	receiver int64
	status   string
	created  time.Time
}

type fakePost struct {
	id      uuid.UUID
	userID  int64
	caption string
	created time.Time
}

type failure struct {
	status  int
	message string
}

type follow struct{ follower, followed int64 }

// FakeBackend is an in-memory implementation of the social REST API served
// over httptest. It supports failure injection and blocking per route.
type FakeBackend struct {
	server  *httptest.Server
	handler http.Handler

	mu         sync.Mutex
	users      map[int64]*fakeUser
	byName     map[string]int64
	sessions   map[string]int64
	follows    map[follow]bool
	requests   map[int64]*fakeRequest
	posts      []fakePost
	nextUser   int64
	nextReq    int64
	clock      time.Time
	failures   map[string]failure
	blocks     map[string]chan struct{}
	calls      map[string]int
	omitCounts bool
	avatars    map[int64][]byte
}

func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		users:    make(map[int64]*fakeUser),
		byName:   make(map[string]int64),
		sessions: make(map[string]int64),
		follows:  make(map[follow]bool),
		requests: make(map[int64]*fakeRequest),
		clock:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		failures: make(map[string]failure),
		blocks:   make(map[string]chan struct{}),
		calls:    make(map[string]int),
		avatars:  make(map[int64][]byte),
	}
	b.handler = b.router()
	b.server = httptest.NewServer(b.handler)
	t.Cleanup(b.server.Close)
	return b
}

// Handler serves the API in-process, for tests driving it with a recorder.
func (b *FakeBackend) Handler() http.Handler {
	return b.handler
}

// URL is the API base, with trailing slash.
func (b *FakeBackend) URL() string {
	return b.server.URL + "/api/"
}

func (b *FakeBackend) router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(b.intercept)

	api.HandleFunc("/auth/login/", b.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/signup/", b.handleSignup).Methods(http.MethodPost).Name(RouteSignup)
	api.HandleFunc("/auth/logout/", b.handleLogout).Methods(http.MethodPost).Name(RouteLogout)
	api.HandleFunc("/auth/me/", b.authed(b.handleMe)).Methods(http.MethodGet).Name(RouteMe)

	api.HandleFunc("/profiles/", b.authed(b.handleUpdateProfile)).Methods(http.MethodPatch).Name(RouteUpdateProfile)
	api.HandleFunc("/profiles/privacy/", b.authed(b.handlePrivacy)).Methods(http.MethodPatch).Name(RoutePrivacy)
	api.HandleFunc("/profiles/upload-picture/", b.authed(b.handleAvatar)).Methods(http.MethodPatch).Name(RouteAvatar)
	api.HandleFunc("/profiles/{username}/", b.authed(b.handleProfile)).Methods(http.MethodGet).Name(RouteProfile)
	api.HandleFunc("/users/{id:[0-9]+}/", b.authed(b.handleUser)).Methods(http.MethodGet).Name(RouteUser)

	api.HandleFunc("/followers/{id:[0-9]+}/followers/", b.authed(b.handleFollowers)).Methods(http.MethodGet).Name(RouteFollowers)
	api.HandleFunc("/followers/{id:[0-9]+}/following/", b.authed(b.handleFollowing)).Methods(http.MethodGet).Name(RouteFollowing)
	api.HandleFunc("/followers/{id:[0-9]+}/follow/", b.authed(b.handleFollow)).Methods(http.MethodPost).Name(RouteFollow)
	api.HandleFunc("/followers/{id:[0-9]+}/unfollow/", b.authed(b.handleUnfollow)).Methods(http.MethodPost).Name(RouteUnfollow)

	api.HandleFunc("/friend-requests/", b.authed(b.handleSendRequest)).Methods(http.MethodPost).Name(RouteSendRequest)
	api.HandleFunc("/friend-requests/pending/", b.authed(b.handlePending)).Methods(http.MethodGet).Name(RoutePendingRequest)
	api.HandleFunc("/friend-requests/sent/", b.authed(b.handleSent)).Methods(http.MethodGet).Name(RouteSentRequests)
	api.HandleFunc("/friend-requests/friends/", b.authed(b.handleFriends)).Methods(http.MethodGet).Name(RouteFriends)
	api.HandleFunc("/friend-requests/{id:[0-9]+}/accept/", b.authed(b.handleAccept)).Methods(http.MethodPost).Name(RouteAcceptRequest)
	api.HandleFunc("/friend-requests/{id:[0-9]+}/reject/", b.authed(b.handleReject)).Methods(http.MethodPost).Name(RouteRejectRequest)

	api.HandleFunc("/posts/feed/", b.authed(b.handleFeed)).Methods(http.MethodGet).Name(RouteFeed)
	api.HandleFunc("/posts/my-posts/", b.authed(b.handleMyPosts)).Methods(http.MethodGet).Name(RouteMyPosts)
	api.HandleFunc("/posts/user/{id:[0-9]+}/", b.authed(b.handleUserPosts)).Methods(http.MethodGet).Name(RouteUserPosts)

	api.HandleFunc("/search/users/", b.handleSearch).Methods(http.MethodGet).Name(RouteSearch)
	return r
}

// intercept counts calls, then applies blocking and injected failures.
func (b *FakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		b.mu.Lock()
		b.calls[name]++
		block := b.blocks[name]
		fail, failing := b.failures[name]
		b.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeJSON(w, fail.status, map[string]string{"error": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every call to route answer status with {"error": message} until
// Recover is called.
func (b *FakeBackend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

func (b *FakeBackend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Block holds calls to route until the returned release func runs.
func (b *FakeBackend) Block(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.blocks[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.blocks, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many requests route received.
func (b *FakeBackend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// OmitCounts drops the follower/following/post counters from profile
// responses, as some backend versions do.
func (b *FakeBackend) OmitCounts(omit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitCounts = omit
}

// AddUser registers an account and returns its id.
func (b *FakeBackend) AddUser(username, password string, private bool) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, username+"@example.com", password, "", private)
}

func (b *FakeBackend) addUserLocked(username, email, password, fullName string, private bool) int64 {
	b.nextUser++
	u := &fakeUser{
		id:       b.nextUser,
		username: username,
		email:    email,
		password: password,
		fullName: fullName,
		private:  private,
	}
	b.users[u.id] = u
	b.byName[strings.ToLower(username)] = u.id
	return u.id
}

// Session creates a session for username and returns its id.
func (b *FakeBackend) Session(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byName[strings.ToLower(username)]
	if !ok {
		return ""
	}
	return b.newSessionLocked(id)
}

func (b *FakeBackend) newSessionLocked(userID int64) string {
	token := uuid.NewString()
	b.sessions[token] = userID
	return token
}

func (b *FakeBackend) SetPrivate(userID int64, private bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u := b.users[userID]; u != nil {
		u.private = private
	}
}

// SetFollow creates (or removes) a follow edge directly.
func (b *FakeBackend) SetFollow(follower, followed int64, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.follows[follow{follower, followed}] = true
	} else {
		delete(b.follows, follow{follower, followed})
	}
}

func (b *FakeBackend) IsFollowing(follower, followed int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.follows[follow{follower, followed}]
}

// PendingRequest reports the id of a pending request from sender to receiver.
func (b *FakeBackend) PendingRequest(sender, receiver int64) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, req := range b.requests {
		if req.sender == sender && req.receiver == receiver && req.status == "pending" {
			return req.id, true
		}
	}
	return 0, false
}

// AddPost creates a post; later posts sort first in feeds.
func (b *FakeBackend) AddPost(userID int64, caption string) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = b.clock.Add(time.Minute)
	p := fakePost{id: uuid.New(), userID: userID, caption: caption, created: b.clock}
	b.posts = append(b.posts, p)
	return p.id
}

// Avatar returns the last picture uploaded by userID.
func (b *FakeBackend) Avatar(userID int64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.avatars[userID]
}

type authedHandler func(w http.ResponseWriter, r *http.Request, self *fakeUser)

func (b *FakeBackend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Session-ID")
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		b.mu.Lock()
		id, ok := b.sessions[token]
		self := b.users[id]
		b.mu.Unlock()
		if !ok || self == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired session. Please log in again."})
			return
		}
		h(w, r, self)
	}
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byName[strings.ToLower(body.Username)]
	if !ok || b.users[id].password != body.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid credentials"})
		return
	}
	token := b.newSessionLocked(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Login successful",
		"session_id": token,
		"user":       b.serializeUserLocked(b.users[id]),
	})
}

func (b *FakeBackend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
		return
	}
	if _, exists := b.byName[strings.ToLower(body.Username)]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username already exists"})
		return
	}
	id := b.addUserLocked(body.Username, body.Email, body.Password, body.FullName, false)
	token := b.newSessionLocked(id)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "User created successfully",
		"session_id": token,
		"user":       b.serializeUserLocked(b.users[id]),
	})
}

func (b *FakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.sessions, r.Header.Get("X-Session-ID"))
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (b *FakeBackend) handleMe(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User authenticated.",
		"user":    b.serializeUserLocked(self),
	})
}

func (b *FakeBackend) handleProfile(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byName[strings.ToLower(mux.Vars(r)["username"])]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, b.serializeProfileLocked(b.users[id], self))
}

func (b *FakeBackend) handleUser(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[pathID(r)]
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, b.serializeProfileLocked(u, self))
}

func (b *FakeBackend) handleUpdateProfile(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	var body struct {
		FullName  *string `json:"full_name"`
		Bio       *string `json:"bio"`
		IsPrivate *bool   `json:"is_private"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if body.FullName != nil {
		self.fullName = *body.FullName
	}
	if body.Bio != nil {
		self.bio = *body.Bio
	}
	if body.IsPrivate != nil {
		self.private = *body.IsPrivate
	}
	writeJSON(w, http.StatusOK, profileFields(self))
}

func (b *FakeBackend) handlePrivacy(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	var body struct {
		IsPrivate *bool `json:"is_private"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.IsPrivate == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_private is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	self.private = *body.IsPrivate
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Privacy updated", "is_private": self.private})
}

func (b *FakeBackend) handleAvatar(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	file, _, err := r.FormFile("profile_pic")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image provided"})
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not read image"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.avatars[self.id] = data
	self.profilePic = fmt.Sprintf("https://cdn.example.com/avatars/%d/%s.jpg", self.id, uuid.NewString()[:8])
	writeJSON(w, http.StatusOK, profileFields(self))
}

func (b *FakeBackend) handleFollowers(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	b.listEdges(w, pathID(r), func(f follow, id int64) (int64, bool) { return f.follower, f.followed == id })
}

func (b *FakeBackend) handleFollowing(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	b.listEdges(w, pathID(r), func(f follow, id int64) (int64, bool) { return f.followed, f.follower == id })
}

func (b *FakeBackend) listEdges(w http.ResponseWriter, id int64, pick func(follow, int64) (int64, bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users[id] == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var ids []int64
	for f := range b.follows {
		if other, ok := pick(f, id); ok {
			ids = append(ids, other)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]interface{}, 0, len(ids))
	for _, other := range ids {
		out = append(out, b.serializeUserLocked(b.users[other]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleFollow(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.users[pathID(r)]
	switch {
	case target == nil:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	case target.id == self.id:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You cannot follow yourself."})
		return
	case b.follows[follow{self.id, target.id}]:
		writeJSON(w, http.StatusOK, map[string]interface{}{"sent": false, "message": "You are already following this user."})
		return
	}

	if !target.private {
		b.follows[follow{self.id, target.id}] = true
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Now following"})
		return
	}

	var existing *fakeRequest
	for _, req := range b.requests {
		if req.sender == self.id && req.receiver == target.id {
			existing = req
		}
		if req.sender == target.id && req.receiver == self.id && req.status == "pending" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"sent": false, "message": "They already sent you a request. Please accept it."})
			return
		}
	}
	if existing != nil {
		if existing.status == "pending" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"sent": false, "message": "Follow request already pending."})
			return
		}
		delete(b.requests, existing.id)
	}
	b.createRequestLocked(self.id, target.id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"sent": true, "message": "Follow request sent (private account)."})
}

func (b *FakeBackend) handleUnfollow(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := pathID(r)
	delete(b.follows, follow{self.id, target})
	for id, req := range b.requests {
		if req.sender == self.id && req.receiver == target {
			delete(b.requests, id)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Unfollowed successfully."})
}

func (b *FakeBackend) createRequestLocked(sender, receiver int64) *fakeRequest {
	b.nextReq++
	b.clock = b.clock.Add(time.Second)
	req := &fakeRequest{id: b.nextReq, sender: sender, receiver: receiver, status: "pending", created: b.clock}
	b.requests[req.id] = req
	return req
}

func (b *FakeBackend) handleSendRequest(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	var body struct {
		Receiver int64 `json:"receiver"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users[body.Receiver] == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Receiver not found"})
		return
	}
	if body.Receiver == self.id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You cannot send a request to yourself."})
		return
	}
	for _, req := range b.requests {
		if req.sender == self.id && req.receiver == body.Receiver && req.status == "pending" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Request already sent"})
			return
		}
	}
	req := b.createRequestLocked(self.id, body.Receiver)
	writeJSON(w, http.StatusCreated, b.serializeRequestLocked(req))
}

func (b *FakeBackend) handleAccept(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.decide(w, r, self, "accepted")
}

func (b *FakeBackend) handleReject(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.decide(w, r, self, "rejected")
}

func (b *FakeBackend) decide(w http.ResponseWriter, r *http.Request, self *fakeUser, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req := b.requests[pathID(r)]
	if req == nil || (req.sender != self.id && req.receiver != self.id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if req.receiver != self.id {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Only the receiver can answer this request."})
		return
	}
	if req.status != "pending" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Request already handled."})
		return
	}
	req.status = status
	if status == "accepted" {
		b.follows[follow{req.sender, req.receiver}] = true
		b.follows[follow{req.receiver, req.sender}] = true
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (b *FakeBackend) handlePending(w http.ResponseWriter, _ *http.Request, self *fakeUser) {
	b.listRequests(w, func(req *fakeRequest) bool { return req.receiver == self.id && req.status == "pending" })
}

func (b *FakeBackend) handleSent(w http.ResponseWriter, _ *http.Request, self *fakeUser) {
	b.listRequests(w, func(req *fakeRequest) bool { return req.sender == self.id && req.status == "pending" })
}

func (b *FakeBackend) listRequests(w http.ResponseWriter, keep func(*fakeRequest) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []*fakeRequest
	for _, req := range b.requests {
		if keep(req) {
			matched = append(matched, req)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })
	out := make([]map[string]interface{}, 0, len(matched))
	for _, req := range matched {
		out = append(out, b.serializeRequestLocked(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleFriends(w http.ResponseWriter, _ *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int64
	for _, req := range b.requests {
		if req.status != "accepted" {
			continue
		}
		switch self.id {
		case req.sender:
			ids = append(ids, req.receiver)
		case req.receiver:
			ids = append(ids, req.sender)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.serializeUserLocked(b.users[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleFeed(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writePostsLocked(w, r, func(p fakePost) bool {
		return p.userID == self.id || b.follows[follow{self.id, p.userID}]
	})
}

func (b *FakeBackend) handleMyPosts(w http.ResponseWriter, r *http.Request, self *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writePostsLocked(w, r, func(p fakePost) bool { return p.userID == self.id })
}

func (b *FakeBackend) handleUserPosts(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	id := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users[id] == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.writePostsLocked(w, r, func(p fakePost) bool { return p.userID == id })
}

// writePostsLocked answers with a DRF-style page: {count, next, previous, results}.
func (b *FakeBackend) writePostsLocked(w http.ResponseWriter, r *http.Request, keep func(fakePost) bool) {
	var matched []fakePost
	for _, p := range b.posts {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].created.After(matched[j].created) })

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	results := make([]map[string]interface{}, 0, end-start)
	for _, p := range matched[start:end] {
		results = append(results, map[string]interface{}{
			"id":             p.id.String(),
			"user":           b.serializeUserLocked(b.users[p.userID]),
			"caption":        p.caption,
			"media_urls":     []string{"https://cdn.example.com/posts/" + p.id.String() + ".jpg"},
			"likes_count":    0,
			"comments_count": 0,
			"created_at":     p.created.Format(time.RFC3339),
		})
	}

	var next interface{}
	if end < len(matched) {
		u := *r.URL
		q := u.Query()
		q.Set("page", strconv.Itoa(page+1))
		u.RawQuery = q.Encode()
		next = b.server.URL + u.RequestURI()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(matched),
		"next":     next,
		"previous": nil,
		"results":  results,
	})
}

func (b *FakeBackend) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	out := make([]map[string]interface{}, 0)
	if len(q) < 2 {
		writeJSON(w, http.StatusOK, out)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, 0, len(b.users))
	for id := range b.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		u := b.users[id]
		if strings.Contains(strings.ToLower(u.username), q) || strings.Contains(strings.ToLower(u.fullName), q) {
			out = append(out, b.serializeUserLocked(u))
			if len(out) == 20 {
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func profileFields(u *fakeUser) map[string]interface{} {
	var pic interface{}
	if u.profilePic != "" {
		pic = u.profilePic
	}
	return map[string]interface{}{
		"full_name":   u.fullName,
		"bio":         u.bio,
		"profile_pic": pic,
		"is_private":  u.private,
	}
}

func (b *FakeBackend) serializeUserLocked(u *fakeUser) map[string]interface{} {
	return map[string]interface{}{
		"id":       u.id,
		"username": u.username,
		"email":    u.email,
		"profile":  profileFields(u),
	}
}

// serializeProfileLocked returns the profile row with the user nested, the
// counters and the viewer's relationship fields.
func (b *FakeBackend) serializeProfileLocked(u, viewer *fakeUser) map[string]interface{} {
	out := profileFields(u)
	out["id"] = 1000 + u.id
	out["user"] = map[string]interface{}{"id": u.id, "username": u.username, "email": u.email}

	if !b.omitCounts {
		followers, following, posts := 0, 0, 0
		for f := range b.follows {
			if f.followed == u.id {
				followers++
			}
			if f.follower == u.id {
				following++
			}
		}
		for _, p := range b.posts {
			if p.userID == u.id {
				posts++
			}
		}
		out["followers_count"] = followers
		out["following_count"] = following
		out["posts_count"] = posts
	}

	if viewer != nil && viewer.id != u.id {
		out["is_following"] = b.follows[follow{viewer.id, u.id}]
		sent := false
		for _, req := range b.requests {
			if req.sender == viewer.id && req.receiver == u.id && req.status == "pending" {
				sent = true
			}
		}
		out["request_sent"] = sent
	}
	return out
}

func (b *FakeBackend) serializeRequestLocked(req *fakeRequest) map[string]interface{} {
	return map[string]interface{}{
		"id":         req.id,
		"sender":     b.serializeUserLocked(b.users[req.sender]),
		"receiver":   b.serializeUserLocked(b.users[req.receiver]),
		"status":     req.status,
		"created_at": req.created.Format(time.RFC3339),
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryInt(r *http.Request, key string, fallback int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
