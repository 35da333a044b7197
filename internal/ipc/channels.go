package ipc

// Request channels. Each names one service operation.
const (
	ChannelAddTransaction            = "transaction:add"
	ChannelAddTransactions           = "transaction:add-bulk"
	ChannelUpdateTransaction         = "transaction:update"
	ChannelRemoveTransaction         = "transaction:remove"
	ChannelGetTransactionByID        = "transaction:get-by-id"
	ChannelGetAllTransactions        = "transaction:get-all"
	ChannelGetTransactionsByDate     = "transaction:get-by-date-range"
	ChannelGetTransactionsByUser     = "transaction:get-by-user"
	ChannelGetTransactionsByCategory = "transaction:get-by-category"
	ChannelSearchTransactions        = "transaction:search"
	ChannelGetTransactionCount       = "transaction:count"
	ChannelGetTransactionsPaginated  = "transaction:paginated"
	ChannelBackupDatabase            = "transaction:backup"

	ChannelLoadDatabase     = "database:load"
	ChannelCreateDatabase   = "database:create"
	ChannelCloseDatabase    = "database:close"
	ChannelIsDatabaseLoaded = "database:is-loaded"
	ChannelGetDatabasePath  = "database:get-path"
)
