package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/socialsync/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api", WithUserAgent("socialsync-test"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	if _, err := NewClient("ftp://example.com/api/"); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestLogin_PostsCredentialsAndDecodesSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "socialsync-test" {
			t.Errorf("expected user agent, got %q", r.Header.Get("User-Agent"))
		}
		var body models.LoginParams
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Username != "ana" || body.Password != "secret" {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = io.WriteString(w, `{"message":"ok","session_id":"sess-1","user":{"id":3,"username":"ana","email":"ana@example.com","profile":{"full_name":"Ana","bio":"","profile_pic":null,"is_private":true}}}`)
	})

	resp, err := c.Login(context.Background(), models.LoginParams{Username: "ana", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("expected session id, got %q", resp.SessionID)
	}
	if resp.User.ID != 3 || resp.User.FullName != "Ana" || !resp.User.IsPrivate {
		t.Fatalf("unexpected user %+v", resp.User)
	}
}

func TestErrors_MapStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		target  error
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Invalid credentials"}`, ErrBadRequest, "Invalid credentials"},
		{"detail field", http.StatusUnauthorized, `{"detail":"Invalid or expired session."}`, ErrUnauthorized, "Invalid or expired session."},
		{"message field", http.StatusNotFound, `{"message":"No such user"}`, ErrNotFound, "No such user"},
		{"no body", http.StatusBadGateway, ``, ErrServer, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Me(context.Background())
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
			if got := ServerMessage(err); got != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, got)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Me(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestProfileByUsername_NestedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/profiles/bob/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":40,"user":{"id":9,"username":"bob","email":"b@example.com"},"full_name":"Bob B","bio":"hi","profile_pic":"http://img/b.jpg","is_private":false,"followers_count":5,"following_count":2,"posts_count":1,"is_following":true}`)
	})

	res, err := c.ProfileByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ProfileByUsername: %v", err)
	}
	p := res.Profile
	if p.ID != 9 || p.Username != "bob" || p.FullName != "Bob B" || p.ProfilePic != "http://img/b.jpg" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.FollowersCount != 5 || !res.HasFollowersCount || !res.HasFollowingCount {
		t.Fatalf("expected counts, got %+v", res)
	}
	if p.IsFollowing == nil || !*p.IsFollowing || p.RequestSent != nil {
		t.Fatalf("unexpected relationship fields %+v", p)
	}
}

func TestProfileByUsername_FlatShapeWithoutCounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":9,"username":"bob","profile":{"full_name":"Bob","bio":"","profile_pic":null,"is_private":true},"request_sent":true}`)
	})

	res, err := c.ProfileByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ProfileByUsername: %v", err)
	}
	if res.HasFollowersCount || res.HasFollowingCount {
		t.Fatalf("expected counts to be reported missing, got %+v", res)
	}
	if !res.Profile.IsPrivate || res.Profile.FullName != "Bob" {
		t.Fatalf("unexpected profile %+v", res.Profile)
	}
	if models.DeriveRelationship(res.Profile) != models.RelationshipPending {
		t.Fatal("expected pending relationship")
	}
}

func TestProfileByUsername_EscapesPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/profiles/a%2Fb/" {
			t.Errorf("unexpected escaped path %s", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"id":1,"username":"a/b"}`)
	})
	if _, err := c.ProfileByUsername(context.Background(), "a/b"); err != nil {
		t.Fatalf("ProfileByUsername: %v", err)
	}
}

func TestFollowers_AcceptsArrayAndPaginated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/followers/7/followers/":
			_, _ = io.WriteString(w, `[{"id":1,"username":"a"},{"id":2,"username":"b"}]`)
		case "/api/followers/7/following/":
			_, _ = io.WriteString(w, `{"count":1,"next":null,"previous":null,"results":[{"id":3,"username":"c"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	followers, err := c.Followers(context.Background(), 7)
	if err != nil || len(followers) != 2 {
		t.Fatalf("expected 2 followers, got %v %v", followers, err)
	}
	following, err := c.Following(context.Background(), 7)
	if err != nil || len(following) != 1 || following[0].Username != "c" {
		t.Fatalf("expected 1 following, got %v %v", following, err)
	}
}

func TestFollow_DecodesSentHint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/followers/9/follow/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"sent":true,"message":"Follow request sent (private account)."}`)
	})

	res, err := c.Follow(context.Background(), 9)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if !res.RequestSent {
		t.Fatal("expected request sent")
	}
}

func TestDecide_FillsStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/friend-requests/4/accept/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"message":"Accepted"}`)
	})

	d, err := c.AcceptFriendRequest(context.Background(), 4)
	if err != nil {
		t.Fatalf("AcceptFriendRequest: %v", err)
	}
	if d.Status != models.FriendRequestStatusAccepted {
		t.Fatalf("expected accepted, got %q", d.Status)
	}
}

func TestPendingRequests(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":5,"sender":{"id":2,"username":"bob"},"receiver":{"id":1,"username":"ana"},"status":"pending","created_at":"2025-01-02T03:04:05Z"}]`)
	})

	reqs, err := c.PendingRequests(context.Background())
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(reqs) != 1 || !reqs[0].IsPending() || reqs[0].Sender.Username != "bob" {
		t.Fatalf("unexpected requests %+v", reqs)
	}
}

func TestFeed_PaginationShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		count    int
		nextPage int
	}{
		{
			name:     "drf",
			body:     `{"count":12,"next":"http://h/api/posts/feed/?limit=5&page=3","previous":null,"results":[{"id":"6f1c8e0e-8f5a-4d55-9f3a-1b2c3d4e5f60","user":{"id":1,"username":"a"},"caption":"x","media_urls":["m"],"likes_count":2,"comments_count":0,"created_at":"2025-01-01T00:00:00Z"}]}`,
			count:    12,
			nextPage: 3,
		},
		{
			name:     "posts nextPage",
			body:     `{"posts":[],"nextPage":4}`,
			count:    0,
			nextPage: 4,
		},
		{
			name:     "last page",
			body:     `{"count":1,"next":null,"results":[]}`,
			count:    1,
			nextPage: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "5" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				_, _ = io.WriteString(w, tt.body)
			})
			page, err := c.Feed(context.Background(), 2, 5)
			if err != nil {
				t.Fatalf("Feed: %v", err)
			}
			if page.Count != tt.count || page.NextPage != tt.nextPage {
				t.Fatalf("expected count %d next %d, got %+v", tt.count, tt.nextPage, page)
			}
		})
	}
}

func TestUserPosts_OwnPostsPath(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `[]`)
	})

	if _, err := c.UserPosts(context.Background(), 0, 10); err != nil {
		t.Fatalf("UserPosts: %v", err)
	}
	if _, err := c.UserPosts(context.Background(), 8, 10); err != nil {
		t.Fatalf("UserPosts: %v", err)
	}
	if paths[0] != "/api/posts/my-posts/" || paths[1] != "/api/posts/user/8/" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestSearchUsers_EncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "ana b" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		_, _ = io.WriteString(w, `{"results":[{"id":1,"username":"ana"}]}`)
	})

	users, err := c.SearchUsers(context.Background(), "ana b")
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %v %v", users, err)
	}
}

func TestUploadAvatar_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/profiles/upload-picture/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile(AvatarField)
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "jpegbytes" || header.Filename != "me.jpg" {
			t.Errorf("unexpected upload %q %q", data, header.Filename)
		}
		_, _ = io.WriteString(w, `{"full_name":"Ana","bio":"","profile_pic":"http://img/new.jpg","is_private":false}`)
	})

	u, err := c.UploadAvatar(context.Background(), "/tmp/me.jpg", "image/jpeg", []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if u.ProfilePic != "http://img/new.jpg" {
		t.Fatalf("expected new avatar url, got %q", u.ProfilePic)
	}
}

func TestUpdatePrivacy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !body["is_private"] {
			t.Errorf("expected is_private true, got %v", body)
		}
		_, _ = io.WriteString(w, `{"message":"updated"}`)
	})

	got, err := c.UpdatePrivacy(context.Background(), true)
	if err != nil || !got {
		t.Fatalf("expected true, got %v %v", got, err)
	}
}
