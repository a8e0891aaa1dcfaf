package common

const (
	ComponentChainClient    = "chain-client"
	ComponentRepository     = "repository"
	ComponentIntegrityGuard = "integrity-guard"
	ComponentPrefetchBuffer = "prefetch-buffer"
	ComponentSyncEngine     = "sync-engine"
	ComponentMaintenance    = "maintenance"
	ComponentAPI            = "api"
)

var AllComponents = map[string]struct{}{
	ComponentChainClient:    {},
	ComponentRepository:     {},
	ComponentIntegrityGuard: {},
	ComponentPrefetchBuffer: {},
	ComponentSyncEngine:     {},
	ComponentMaintenance:    {},
	ComponentAPI:            {},
}
