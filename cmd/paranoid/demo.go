package main

import (
	"context"
	"fmt"
	"io"

	"paranoid/internal/app"
	"paranoid/internal/core/apperror"
	"paranoid/internal/core/id"
	"paranoid/internal/domain/accounts"
	"paranoid/internal/domain/articles"
	"paranoid/internal/domain/filter"
	"paranoid/internal/domain/posts"
)

// runDemo seeds a few records under a per-run suffix, deletes and restores
// them, and reports what the default and unfiltered paths see.
func runDemo(ctx context.Context, a *app.App, w io.Writer) error {
	run := id.New().String()[24:]
	p := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	// --- Articles: NONE policy ---
	a1 := articles.NewArticle("article 1 "+run, "article 1 content")
	a2 := articles.NewArticle("article 2 "+run, "article 2 content")
	for _, art := range []*articles.Article{a1, a2} {
		if err := a.Articles.Articles.Create(ctx, art); err != nil {
			return err
		}
		if err := a.Articles.Comments.Create(ctx, articles.NewComment(art.ID, "comment1 for "+art.Title)); err != nil {
			return err
		}
	}

	if _, err := a.Articles.Articles.Delete(ctx, a1); err != nil {
		return err
	}
	p("article %s deleted at %s", a1.ID, a1.Deleted.Format("2006-01-02T15:04:05.000000Z07:00"))

	mine := filter.Like("title", run)
	visible, err := a.Articles.Articles.Count(ctx, mine)
	if err != nil {
		return err
	}
	all, err := a.Articles.Articles.CountWithDeleted(ctx, mine)
	if err != nil {
		return err
	}
	p("articles: visible=%d all=%d", visible, all)

	if _, err := a.Articles.Articles.GetByID(ctx, a1.ID); apperror.IsNotFound(err) {
		p("article %s: not found through the default path", a1.ID)
	}

	c, err := a.Articles.CommentByArticleTitle(ctx, a1.Title)
	if err != nil {
		return err
	}
	p("comment of deleted article by title: %q", c.Text)

	n, err := a.Articles.CommentCountFor(ctx, a1)
	if err != nil {
		return err
	}
	p("comments counted for deleted article: %d", n)

	if _, err := a.Articles.Comments.Delete(ctx, c); err != nil {
		return err
	}
	left, err := a.Articles.CommentsOf(ctx, a1)
	if err != nil {
		return err
	}
	p("visible comments after comment delete: %d", len(left))

	// --- Accounts: CASCADE policy ---
	u := accounts.NewUser("sam kin", "sam+"+run+"@example.com")
	if err := a.Accounts.Users.Create(ctx, u); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := a.Accounts.Logins.Create(ctx, accounts.NewUserLogin(u.ID)); err != nil {
			return err
		}
	}

	res, err := a.Accounts.Delete(ctx, u)
	if err != nil {
		return err
	}
	p("user %s deleted, cascaded to %d records", u.ID, len(res.Cascaded))
	logins, err := a.Accounts.LoginsOf(ctx, u)
	if err != nil {
		return err
	}
	p("visible logins after user delete: %d", len(logins))

	if _, err := a.Accounts.Undelete(ctx, u); err != nil {
		return err
	}
	logins, err = a.Accounts.LoginsOf(ctx, u)
	if err != nil {
		return err
	}
	p("visible logins after undelete: %d", len(logins))

	// --- Posts: paranoid marker ---
	post := posts.NewPost("post 1 "+run, "post 1 description")
	if err := a.Posts.Posts.Create(ctx, post); err != nil {
		return err
	}
	if err := a.Posts.Comments.Create(ctx, posts.NewComment(post.ID, "comment1 for post1")); err != nil {
		return err
	}
	if _, err := a.Posts.Posts.Delete(ctx, post); err != nil {
		return err
	}
	stored, err := a.Posts.Posts.GetByIDWithDeleted(ctx, post.ID)
	if err != nil {
		return err
	}
	p("post %s fetched through the unfiltered path, deleted_at set: %t", post.ID, stored.DeletedAt != nil)

	return nil
}
