package ports

import "github.com/gateway-os/gatewayd/internal/core/domain"

type RepoManager interface {
	Balances() domain.BalanceRepository
	Delegations() domain.DelegationRepository
	Burns() domain.BurnRepository
	Tokens() domain.TokenRepository
	Settings() domain.SettingsRepository
	Close()
}
