package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/socialsync/internal/models"
	"github.com/HammerMeetNail/socialsync/internal/services"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "socialctl",
		Short:         "Command line client for the social network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newFollowCmd(a),
		newUnfollowCmd(a),
		newFollowListCmd(a, "followers"),
		newFollowListCmd(a, "following"),
		newRequestsCmd(a),
		newFeedCmd(a),
		newPostsCmd(a),
		newSearchCmd(a),
		newPrivacyCmd(a),
		newEditCmd(a),
		newAvatarCmd(a),
	)
	return root
}

// password prefers the flag, then SOCIAL_PASSWORD, then one line of stdin.
func (a *app) password(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v, ok := a.lookupEnv("SOCIAL_PASSWORD"); ok && v != "" {
		return v, nil
	}
	fmt.Fprint(a.out, "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprintln(a.out)
	return strings.TrimSpace(line), nil
}

func newSignupCmd(a *app) *cobra.Command {
	var params models.SignupParams
	var password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(cmd, password)
			if err != nil {
				return err
			}
			params.Password = pw
			u, err := a.svc.Auth.Signup(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s\n", u.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "account username")
	cmd.Flags().StringVar(&params.Email, "email", "", "account email")
	cmd.Flags().StringVar(&params.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $SOCIAL_PASSWORD or prompt)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var params models.LoginParams
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(cmd, password)
			if err != nil {
				return err
			}
			params.Password = pw
			u, err := a.svc.Auth.Login(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "password (default: $SOCIAL_PASSWORD or prompt)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.svc.Auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s) id=%d\n", u.Username, u.DisplayName(), u.ID)
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a profile and your relationship to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.svc.Auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.svc.Profiles.GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProfile(a.out, p)
			if p.ID != me.ID {
				view := a.svc.Follows.Sync(me.ID, p)
				fmt.Fprintf(a.out, "Relationship: %s\n", view.ActionLabel())
			}
			return nil
		},
	}
}

func printProfile(w io.Writer, p models.Profile) {
	fmt.Fprintf(w, "@%s  %s\n", p.Username, p.DisplayName())
	if p.Bio != "" {
		fmt.Fprintf(w, "%s\n", p.Bio)
	}
	fmt.Fprintf(w, "Posts: %d  Followers: %d  Following: %d\n", p.PostsCount, p.FollowersCount, p.FollowingCount)
	if p.IsPrivate {
		fmt.Fprintln(w, "Private account")
	}
}

// relationshipTarget loads the signed-in user and target, and syncs the
// reconciler view for the pair.
func (a *app) relationshipTarget(cmd *cobra.Command, username string) (int64, models.Profile, error) {
	me, err := a.svc.Auth.Me(cmd.Context())
	if err != nil {
		return 0, models.Profile{}, err
	}
	p, err := a.svc.Profiles.GetProfile(cmd.Context(), username)
	if err != nil {
		return 0, models.Profile{}, err
	}
	if p.ID == me.ID {
		return 0, models.Profile{}, &services.ValidationError{Message: "You cannot follow yourself"}
	}
	a.svc.Follows.Sync(me.ID, p)
	return me.ID, p, nil
}

func newFollowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <username>",
		Short: "Follow a user, or request to follow a private account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			self, target, err := a.relationshipTarget(cmd, args[0])
			if err != nil {
				return err
			}
			view, err := a.svc.Follows.Follow(cmd.Context(), self, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s\n", view.Username, view.ActionLabel())
			return nil
		},
	}
}

func newUnfollowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <username>",
		Short: "Unfollow a user or withdraw a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			self, target, err := a.relationshipTarget(cmd, args[0])
			if err != nil {
				return err
			}
			view, err := a.svc.Follows.Unfollow(cmd.Context(), self, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s\n", view.Username, view.ActionLabel())
			return nil
		},
	}
}

func newFollowListCmd(a *app, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <username>",
		Short: "List a user's " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.svc.Profiles.GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			list := a.svc.Profiles.Followers
			if kind == "following" {
				list = a.svc.Profiles.Following
			}
			users, err := list(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			printUsers(a.out, users)
			return nil
		},
	}
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "@%s  %s\n", u.Username, u.DisplayName())
	}
}

func newRequestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Manage friend requests",
	}

	list := func(name, short string, fetch func(*cobra.Command) ([]models.FriendRequest, error), incoming bool) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reqs, err := fetch(cmd)
				if err != nil {
					return err
				}
				if len(reqs) == 0 {
					fmt.Fprintln(a.out, "No requests")
					return nil
				}
				for _, r := range reqs {
					if incoming {
						fmt.Fprintf(a.out, "#%d from @%s\n", r.ID, r.Sender.Username)
					} else {
						fmt.Fprintf(a.out, "#%d to @%s\n", r.ID, r.Receiver.Username)
					}
				}
				return nil
			},
		}
	}

	decide := func(name, short string, fn func(*cobra.Command, int64) (models.RequestDecision, error)) *cobra.Command {
		return &cobra.Command{
			Use:   name + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return &services.ValidationError{Message: fmt.Sprintf("Invalid request id %q", args[0])}
				}
				d, err := fn(cmd, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Request #%d %s\n", id, d.Status)
				return nil
			},
		}
	}

	cmd.AddCommand(
		list("pending", "List requests you have received", func(cmd *cobra.Command) ([]models.FriendRequest, error) {
			return a.svc.Requests.Pending(cmd.Context())
		}, true),
		list("sent", "List requests you have sent", func(cmd *cobra.Command) ([]models.FriendRequest, error) {
			return a.svc.Requests.Sent(cmd.Context())
		}, false),
		&cobra.Command{
			Use:   "friends",
			Short: "List accepted friends",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				users, err := a.svc.Requests.Friends(cmd.Context())
				if err != nil {
					return err
				}
				printUsers(a.out, users)
				return nil
			},
		},
		&cobra.Command{
			Use:   "send <username>",
			Short: "Send a friend request",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.svc.Profiles.GetProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				r, err := a.svc.Requests.Send(cmd.Context(), p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Request #%d sent to @%s\n", r.ID, p.Username)
				return nil
			},
		},
		decide("accept", "Accept a received request", func(cmd *cobra.Command, id int64) (models.RequestDecision, error) {
			return a.svc.Requests.Accept(cmd.Context(), id)
		}),
		decide("reject", "Reject a received request", func(cmd *cobra.Command, id int64) (models.RequestDecision, error) {
			return a.svc.Requests.Reject(cmd.Context(), id)
		}),
	)
	return cmd
}

func printPosts(w io.Writer, page models.PostPage) {
	if len(page.Posts) == 0 {
		fmt.Fprintln(w, "No posts yet")
		return
	}
	for _, p := range page.Posts {
		fmt.Fprintf(w, "@%s  %s  %s\n", p.User.Username, p.CreatedAt.Format("2006-01-02 15:04"), p.Caption)
	}
}

func newFeedCmd(a *app) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show posts from you and the people you follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.svc.Feed.Feed(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			printPosts(a.out, p)
			if p.HasMore() {
				fmt.Fprintf(a.out, "More: socialctl feed --page %d\n", p.NextPage)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", services.DefaultPageSize, "posts per page")
	return cmd
}

func newPostsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "posts [username]",
		Short: "Show a user's posts, or your own",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID int64
			if len(args) == 1 {
				p, err := a.svc.Profiles.GetProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				userID = p.ID
			}
			page, err := a.svc.Feed.UserPosts(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			printPosts(a.out, page)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", services.DefaultPageSize, "number of posts")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find users by username or name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.svc.Search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printUsers(a.out, users)
			return nil
		},
	}
}

func newPrivacyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "privacy on|off",
		Short:     "Make your account private or public",
		ValidArgs: []string{"on", "off"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			private, err := a.svc.Profiles.UpdatePrivacy(cmd.Context(), args[0] == "on")
			if err != nil {
				return err
			}
			if private {
				fmt.Fprintln(a.out, "Your account is now private")
			} else {
				fmt.Fprintln(a.out, "Your account is now public")
			}
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var name, bio string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Update your name or bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update models.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.FullName = &name
			}
			if cmd.Flags().Changed("bio") {
				update.Bio = &bio
			}
			if _, err := a.svc.Profiles.UpdateSelf(cmd.Context(), update); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Profile updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&bio, "bio", "", "bio")
	return cmd
}

func newAvatarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <file>",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			u, err := a.svc.Profiles.UploadAvatar(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Profile picture updated: %s\n", u.ProfilePic)
			return nil
		},
	}
}
