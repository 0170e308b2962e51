package cnst

// Collection names shared by both storage backends.
const (
	CollectionContracts = "contracts"
	CollectionWorks     = "works"
	CollectionPartners  = "partners"
	CollectionChannels  = "channels"
	CollectionUsers     = "users"
)

// MigrationOrder is the order collections are copied from the local backend
// into the remote backend. Contracts go first so partner/channel re-derivation
// never runs ahead of the contracts they were derived from.
var MigrationOrder = []string{
	CollectionContracts,
	CollectionWorks,
	CollectionPartners,
	CollectionChannels,
	CollectionUsers,
}

// Collections lists every known collection name.
var Collections = MigrationOrder

// IsCollection reports whether name names a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Redis cluster types accepted by the notifier configuration.
const (
	RedisClusterTypeSingle   = "single"
	RedisClusterTypeCluster  = "cluster"
	RedisClusterTypeSentinel = "sentinel"
)
