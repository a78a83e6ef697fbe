package lexicons

const (
	ServerCreateAccount  string = "com.atproto.server.createAccount"
	ServerDescribeServer string = "com.atproto.server.describeServer"
	ServerCreateSession  string = "com.atproto.server.createSession"
	ServerRefreshSession string = "com.atproto.server.refreshSession"
	ServerDeleteSession  string = "com.atproto.server.deleteSession"
	ServerGetSession     string = "com.atproto.server.getSession"

	IdentityResolveHandle string = "com.atproto.identity.resolveHandle"

	SyncGetLatestCommit string = "com.atproto.sync.getLatestCommit"
	SyncSubscribeRepos  string = "com.atproto.sync.subscribeRepos"
)

const (
	ScopeAccess  string = "com.atproto.access"
	ScopeRefresh string = "com.atproto.refresh"
)
