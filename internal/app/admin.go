package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/hitoshi/yatube/internal/config"
	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/group"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/post"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/user"
)

// adminServices は管理コマンドが操作するサービス群。
type adminServices struct {
	groups *group.Service
	users  *user.Service
	posts  *post.Service
}

func newAdminServices(store *repository.Store, images *media.Service) *adminServices {
	return &adminServices{
		groups: group.NewService(store.Groups),
		users:  user.NewService(store, images, 0),
		posts:  post.NewService(store, images, nil, nil, nil, post.Config{}),
	}
}

// runAdmin はストレージと画像ストレージを開き、管理コマンドを1つ実行する。
func runAdmin(ctx context.Context, cfg *config.Config, cmd Command, args []string, out io.Writer) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := newMedia(ctx, cfg, nil)
	if err != nil {
		return err
	}

	return execAdmin(ctx, newAdminServices(store, images.service), cmd, args, out)
}

// execAdmin は管理コマンドの引数を解析して実行し、結果をoutに書き出す。
func execAdmin(ctx context.Context, svc *adminServices, cmd Command, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(string(cmd), flag.ContinueOnError)
	fs.SetOutput(out)

	switch cmd {
	case CommandCreateGroup:
		var in form.GroupInput
		fs.StringVar(&in.Slug, "slug", "", "グループのスラッグ")
		fs.StringVar(&in.Title, "title", "", "グループ名")
		fs.StringVar(&in.Description, "description", "", "説明")
		if err := fs.Parse(args); err != nil {
			return err
		}
		g, err := svc.groups.Create(ctx, in)
		if err != nil {
			return adminError(err)
		}
		fmt.Fprintf(out, "created group %s (id=%d)\n", g.Slug, g.ID)

	case CommandDeleteGroup:
		slug := fs.String("slug", "", "削除するグループのスラッグ")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *slug == "" {
			return errors.New("-slug is required")
		}
		if err := svc.groups.Delete(ctx, *slug); err != nil {
			return adminError(err)
		}
		fmt.Fprintf(out, "deleted group %s\n", *slug)

	case CommandDeleteUser:
		username := fs.String("username", "", "削除するユーザー名")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *username == "" {
			return errors.New("-username is required")
		}
		if err := svc.users.Delete(ctx, *username); err != nil {
			return adminError(err)
		}
		fmt.Fprintf(out, "deleted user %s\n", *username)

	case CommandDeletePost:
		id := fs.Int64("id", 0, "削除する投稿のID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id <= 0 {
			return errors.New("-id must be a positive integer")
		}
		if err := svc.posts.Delete(ctx, *id); err != nil {
			return adminError(err)
		}
		fmt.Fprintf(out, "deleted post %d\n", *id)

	default:
		return fmt.Errorf("unknown admin command: %s", cmd)
	}
	return nil
}

// adminError はAppErrorをコマンドライン向けのメッセージに変換する。
func adminError(err error) error {
	if appErr, ok := model.AsAppError(err); ok {
		return fmt.Errorf("%s: %w", appErr.Action, err)
	}
	return err
}
