// Command social is the terminal client. Most subcommands run one
// façade operation and print the resulting view; chat opens the live
// conversation UI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aisocialapp/appcore/internal/cli"
	"github.com/aisocialapp/appcore/internal/models"
	syncsvc "github.com/aisocialapp/appcore/internal/sync"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app := cli.NewApp()
	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = signIn(ctx, app, args, true)
	case "login":
		err = signIn(ctx, app, args, false)
	case "logout":
		err = app.Identity.SignOut(ctx)
	case "whoami":
		err = whoami(app)
	case "feed":
		err = showFeed(ctx, app, args)
	case "post":
		err = createPost(ctx, app, args)
	case "delete-post":
		err = withLoadedFeed(ctx, app, args, app.Syncer.DeletePost)
	case "like":
		err = withLoadedFeed(ctx, app, args, app.Syncer.LikePost)
	case "unlike":
		err = withLoadedFeed(ctx, app, args, app.Syncer.UnlikePost)
	case "comments":
		err = showComments(ctx, app, args)
	case "comment":
		err = addComment(ctx, app, args)
	case "stories":
		err = showStories(ctx, app)
	case "story":
		err = addStory(ctx, app, args)
	case "friends":
		err = showFriends(ctx, app)
	case "requests":
		err = showRequests(ctx, app)
	case "add":
		err = withArg(args, "username", func(u string) error { return app.Syncer.SendFriendRequest(ctx, u) })
	case "accept":
		err = respond(ctx, app, args, true)
	case "reject":
		err = respond(ctx, app, args, false)
	case "search":
		err = searchUsers(ctx, app, args)
	case "notifications":
		err = showNotifications(ctx, app)
	case "avatar":
		err = uploadAvatar(ctx, app, args)
	case "chats":
		err = showChats(ctx, app)
	case "chat":
		err = openChat(ctx, app, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: social <command> [args]

  signup <email> <password>     create an account and sign in
  login <email> <password>      sign in
  logout                        sign out
  whoami                        show the signed-in user

  feed [friends]                show the feed (optionally friends only)
  post <text> [media-file]      publish a post
  delete-post <id>              delete one of your posts
  like <id> / unlike <id>       toggle a like
  comments <id>                 show a post's comments
  comment <id> <text>           comment on a post

  stories                       show the stories strip
  story <image-file>            publish a story
  avatar <image-file>           set your profile picture

  friends                       list accepted friends
  requests                      list pending friend requests
  add <username>                send a friend request
  accept <id> / reject <id>     answer a request
  search <query>                find users

  notifications                 show your notifications
  chats                         list conversations
  chat <username>               open a live conversation`)
}

func signIn(ctx context.Context, app *cli.App, args []string, signup bool) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <email> <password>")
	}
	var err error
	if signup {
		_, err = app.Identity.SignUp(ctx, args[0], args[1])
	} else {
		_, err = app.Identity.SignIn(ctx, args[0], args[1])
	}
	if err != nil {
		return err
	}
	profile, err := app.Syncer.EnsureProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", profile.Username)
	return nil
}

func whoami(app *cli.App) error {
	user, ok := app.Identity.CurrentUser()
	if !ok {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s (%s)\n", models.UsernameFromEmail(user.Email), user.Email)
	return nil
}

func showFeed(ctx context.Context, app *cli.App, args []string) error {
	scope := syncsvc.FeedGlobal
	if len(args) > 0 && args[0] == "friends" {
		scope = syncsvc.FeedFriends
	}
	if err := app.Syncer.RefreshFeed(ctx, scope); err != nil {
		return err
	}
	view := app.Syncer.View()
	for _, p := range view.Feed.Items() {
		liked := " "
		if view.Liked.Has(p.ID) {
			liked = "♥"
		}
		ai := ""
		if p.AIGenerated {
			ai = " [ai]"
		}
		fmt.Printf("#%d %s @%s%s (%d likes)\n  %s\n", p.ID, liked, p.Username, ai, p.LikeCount, p.Description)
		if p.ImageURL != nil {
			fmt.Printf("  %s: %s\n", p.MediaKind, *p.ImageURL)
		}
	}
	return nil
}

func createPost(ctx context.Context, app *cli.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("expected <text> [media-file]")
	}
	var media []byte
	var contentType string
	kind := models.MediaImage
	if len(args) > 1 {
		var err error
		media, contentType, err = readMedia(args[1])
		if err != nil {
			return err
		}
		if len(contentType) >= 5 && contentType[:5] == "video" {
			kind = models.MediaVideo
		}
	}
	post, err := app.Syncer.CreatePost(ctx, args[0], media, contentType, kind, false)
	if err != nil {
		return err
	}
	fmt.Printf("posted #%d\n", post.ID)
	return nil
}

func showComments(ctx context.Context, app *cli.App, args []string) error {
	return withPostID(args, func(id int64) error {
		if err := app.Syncer.RefreshComments(ctx, id); err != nil {
			return err
		}
		for _, c := range app.Syncer.View().Comments(id).Items() {
			fmt.Printf("@%s: %s\n", c.Username, c.Content)
		}
		return nil
	})
}

func addComment(ctx context.Context, app *cli.App, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <post-id> <text>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post id %q", args[0])
	}
	return app.Syncer.AddComment(ctx, id, args[1])
}

func showStories(ctx context.Context, app *cli.App) error {
	if err := app.Syncer.RefreshStories(ctx); err != nil {
		return err
	}
	for _, s := range app.Syncer.View().Stories.Items() {
		fmt.Printf("@%s: %s\n", s.Username, s.ImageURL)
	}
	return nil
}

func addStory(ctx context.Context, app *cli.App, args []string) error {
	return withArg(args, "image-file", func(path string) error {
		media, contentType, err := readMedia(path)
		if err != nil {
			return err
		}
		story, err := app.Syncer.AddStory(ctx, media, contentType)
		if err != nil {
			return err
		}
		fmt.Printf("story #%d published\n", story.ID)
		return nil
	})
}

func showFriends(ctx context.Context, app *cli.App) error {
	friends, err := app.Syncer.AcceptedFriends(ctx)
	if err != nil {
		return err
	}
	for _, f := range friends {
		fmt.Println(f)
	}
	return nil
}

func showRequests(ctx context.Context, app *cli.App) error {
	if err := app.Syncer.RefreshRequests(ctx); err != nil {
		return err
	}
	for _, r := range app.Syncer.View().Requests.Items() {
		fmt.Printf("#%d from @%s\n", r.ID, r.Sender)
	}
	return nil
}

func respond(ctx context.Context, app *cli.App, args []string, accept bool) error {
	return withArg(args, "request-id", func(raw string) error {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid request id %q", raw)
		}
		return app.Syncer.RespondToRequest(ctx, id, accept)
	})
}

func searchUsers(ctx context.Context, app *cli.App, args []string) error {
	return withArg(args, "query", func(q string) error {
		profiles, err := app.Syncer.SearchUsers(ctx, q)
		if err != nil {
			return err
		}
		for _, p := range profiles {
			line := "@" + p.Username
			if p.FullName != nil {
				line += " (" + *p.FullName + ")"
			}
			fmt.Println(line)
		}
		return nil
	})
}

func showNotifications(ctx context.Context, app *cli.App) error {
	if err := app.Syncer.RefreshNotifications(ctx); err != nil {
		return err
	}
	for _, n := range app.Syncer.View().Notifications.Items() {
		fmt.Println(n.Message)
	}
	return nil
}

func uploadAvatar(ctx context.Context, app *cli.App, args []string) error {
	return withArg(args, "image-file", func(path string) error {
		media, contentType, err := readMedia(path)
		if err != nil {
			return err
		}
		url, err := app.Syncer.UploadAvatar(ctx, media, contentType)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	})
}

func showChats(ctx context.Context, app *cli.App) error {
	chats, err := app.Syncer.ChatList(ctx)
	if err != nil {
		return err
	}
	for _, c := range chats {
		preview := ""
		if c.LastMessage.Content != nil {
			preview = *c.LastMessage.Content
		}
		fmt.Printf("@%s: %s\n", c.Partner, preview)
	}
	return nil
}

func openChat(ctx context.Context, app *cli.App, args []string) error {
	return withArg(args, "username", func(partner string) error {
		user, ok := app.Identity.CurrentUser()
		if !ok {
			return fmt.Errorf("not signed in")
		}
		conv, err := app.Syncer.OpenConversation(ctx, partner)
		if err != nil {
			return err
		}
		model := cli.NewChatModel(models.UsernameFromEmail(user.Email), partner, conv)
		_, err = tea.NewProgram(model).Run()
		return err
	})
}

// withLoadedFeed loads the feed before a post operation, since the
// façade works against posts it has in view.
func withLoadedFeed(ctx context.Context, app *cli.App, args []string, fn func(context.Context, int64) error) error {
	return withPostID(args, func(id int64) error {
		if err := app.Syncer.RefreshFeed(ctx, syncsvc.FeedGlobal); err != nil {
			return err
		}
		return fn(ctx, id)
	})
}

func withPostID(args []string, fn func(int64) error) error {
	return withArg(args, "post-id", func(raw string) error {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", raw)
		}
		return fn(id)
	})
}

func withArg(args []string, name string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <%s>", name)
	}
	return fn(args[0])
}

func readMedia(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}
