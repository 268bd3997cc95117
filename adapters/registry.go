package adapters

import (
	"fmt"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"
)

// New creates the adapter for one storefront on its own session
func New(site types.SiteID, session *utils.Session, config *types.Config, logger types.Logger) (types.SiteAdapter, error) {
	switch site {
	case types.SiteDLsite:
		return NewDLsiteAdapter(session, config, logger), nil
	case types.SiteFanza:
		return NewFanzaAdapter(session, config, logger), nil
	case types.SiteBooth:
		return NewBoothAdapter(session, config, logger), nil
	case types.SiteToranoana:
		return NewToranoanaAdapter(session, config, logger), nil
	case types.SiteMelonbooks:
		return NewMelonbooksAdapter(session, config, logger), nil
	case types.SiteAlicebooks:
		return NewAlicebooksAdapter(session, config, logger), nil
	default:
		return nil, fmt.Errorf("no adapter found for site: %s", site)
	}
}

// Set holds one adapter per storefront for a single item
type Set map[types.SiteID]types.SiteAdapter

// NewSet builds a fresh adapter per known storefront, each with a new cookie session,
// so nothing an adapter learns (gate cookies) survives past the item.
func NewSet(client *utils.HTTPClient, config *types.Config, logger types.Logger) Set {
	set := make(Set, len(types.KnownSites))
	for _, site := range types.KnownSites {
		adapter, err := New(site, client.NewSession(), config, logger)
		if err != nil {
			// KnownSites and New are kept in sync
			panic(err)
		}
		set[site] = adapter
	}
	return set
}

// ForURL returns the adapter whose storefront owns productURL
func (s Set) ForURL(productURL string) (types.SiteAdapter, bool) {
	for _, site := range types.KnownSites {
		if a, ok := s[site]; ok && a.Matches(productURL) {
			return a, true
		}
	}
	return nil, false
}

// URLCleaner is implemented by adapters that normalise seed URLs
type URLCleaner interface {
	CleanURL(productURL string) string
}
