package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの削除ワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	// 追加引数downで直近のマイグレーションを1つ取り消す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandCreateGroup はグループを作成する。
	CommandCreateGroup Command = "creategroup"
	// CommandDeleteGroup はグループを削除し、所属投稿のグループ参照を外す。
	CommandDeleteGroup Command = "deletegroup"
	// CommandDeleteUser はユーザーと投稿、コメントを削除する。
	CommandDeleteUser Command = "deleteuser"
	// CommandDeletePost は投稿とコメントを削除する。
	CommandDeletePost Command = "deletepost"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck,
		CommandCreateGroup, CommandDeleteGroup, CommandDeleteUser, CommandDeletePost:
		return cmd
	default:
		return CommandServe
	}
}

// isAdminCommand はストレージを直接操作する管理コマンドかを返す。
func isAdminCommand(cmd Command) bool {
	switch cmd {
	case CommandCreateGroup, CommandDeleteGroup, CommandDeleteUser, CommandDeletePost:
		return true
	}
	return false
}
