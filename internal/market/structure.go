// Package market builds the group/trio structure (C2) and the token dispatch
// index (C3) from an externally supplied list of group descriptors, and
// normalizes websocket quote frames into engine-ready updates.
package market

import (
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

// Trio is the unit of arbitrage evaluation: two adjacent "above-X" parents
// and the range child that chains them. All cross-references are slot
// indices into the shared Price Table; there are no cyclic references.
type Trio struct {
	LowerID, UpperID, RangeID string

	LowerYesSlot, LowerNoSlot int
	UpperYesSlot, UpperNoSlot int
	RangeYesSlot, RangeNoSlot int

	LowerYesToken, LowerNoToken string
	UpperYesToken, UpperNoToken string
	RangeYesToken, RangeNoToken string

	NegRisk bool

	cooldowns map[types.StrategyTag]int64
}

// Cooldown returns the last-emission timestamp (ms) for a strategy on this trio.
func (t *Trio) Cooldown(tag types.StrategyTag) int64 {
	return t.cooldowns[tag]
}

// SetCooldown stamps the last-emission timestamp for a strategy on this trio.
func (t *Trio) SetCooldown(tag types.StrategyTag, tsMs int64) {
	t.cooldowns[tag] = tsMs
}

// Group is a named collection of parents and range children sharing an
// external event key, plus their derived trios.
type Group struct {
	Key      string
	Parents  map[string]*types.MarketMeta
	Children map[string]*types.MarketMeta
	Trios    []*Trio

	// TrioLookupByAsset maps a leg token id to the trio indices that reference it.
	TrioLookupByAsset map[string][]int
}

// Structure is the full rebuildable world: every group and the engine-wide
// token -> role index (C3).
type Structure struct {
	Groups     map[string]*Group
	TokenIndex map[string][]types.TokenRole
}

// RolesFor returns every TokenRole registered for a token, or nil if the
// token is not part of any group.
func (s *Structure) RolesFor(tokenID string) []types.TokenRole {
	return s.TokenIndex[tokenID]
}

// TrioCount returns the total number of trios across all groups.
func (s *Structure) TrioCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Trios)
	}
	return n
}

// legSpec pairs a trio leg's token with its dispatch role.
type legSpec struct {
	token string
	role  types.LegRole
}

// Build rebuilds the structure and the price table from a fresh set of group
// descriptors (spec §4.2, update_market_structure). Parents within a group
// must already be sorted ascending by Lower — Build does not re-sort.
func Build(groups []types.GroupDescriptor, table *pricetable.Table) (*Structure, int) {
	table.Reset()

	st := &Structure{
		Groups:     make(map[string]*Group),
		TokenIndex: make(map[string][]types.TokenRole),
	}

	trioCount := 0

	for _, gd := range groups {
		g := &Group{
			Key:               gd.Key,
			Parents:           make(map[string]*types.MarketMeta),
			Children:          make(map[string]*types.MarketMeta),
			TrioLookupByAsset: make(map[string][]int),
		}

		var parentMetas []*types.MarketMeta
		for _, p := range gd.Parents {
			if p.YesTokenID == "" || p.NoTokenID == "" {
				continue // incomplete token pair, filtered per §4.2
			}
			meta := &types.MarketMeta{
				ID: p.ID, Slug: p.Slug,
				YesTokenID: p.YesTokenID, NoTokenID: p.NoTokenID,
				Lower: p.Lower, Upper: p.Upper,
				Kind: p.Kind, NegRisk: p.NegRisk,
			}
			meta.YesSlot = table.AllocSlot(p.YesTokenID)
			meta.NoSlot = table.AllocSlot(p.NoTokenID)
			g.Parents[p.ID] = meta
			parentMetas = append(parentMetas, meta)

			st.registerRole(p.YesTokenID, types.TokenRole{Kind: types.RoleParent, GroupKey: gd.Key, ParentID: p.ID})
			st.registerRole(p.NoTokenID, types.TokenRole{Kind: types.RoleParent, GroupKey: gd.Key, ParentID: p.ID})
		}

		var childMetas []*types.MarketMeta
		for _, c := range gd.Children {
			if c.YesTokenID == "" || c.NoTokenID == "" {
				continue
			}
			lower, upper := c.Lower, c.Upper
			meta := &types.MarketMeta{
				ID: c.ID, Slug: c.Slug,
				YesTokenID: c.YesTokenID, NoTokenID: c.NoTokenID,
				Lower: &lower, Upper: &upper,
				Kind: types.KindRange, NegRisk: c.NegRisk,
			}
			meta.YesSlot = table.AllocSlot(c.YesTokenID)
			meta.NoSlot = table.AllocSlot(c.NoTokenID)
			g.Children[c.ID] = meta
			childMetas = append(childMetas, meta)

			st.registerRole(c.YesTokenID, types.TokenRole{Kind: types.RoleRangeChild, GroupKey: gd.Key, ChildID: c.ID})
			st.registerRole(c.NoTokenID, types.TokenRole{Kind: types.RoleRangeChild, GroupKey: gd.Key, ChildID: c.ID})
		}

		for i := 0; i+1 < len(parentMetas); i++ {
			pLo, pHi := parentMetas[i], parentMetas[i+1]
			if pLo.Kind != types.KindAbove || pHi.Kind != types.KindAbove {
				continue
			}
			if pLo.Lower == nil || pHi.Lower == nil {
				continue
			}

			var child *types.MarketMeta
			for _, c := range childMetas {
				if *c.Lower == *pLo.Lower && *c.Upper == *pHi.Lower {
					child = c
					break // first discovered wins on a tie
				}
			}
			if child == nil {
				continue
			}

			trio := &Trio{
				LowerID: pLo.ID, UpperID: pHi.ID, RangeID: child.ID,
				LowerYesSlot: pLo.YesSlot, LowerNoSlot: pLo.NoSlot,
				UpperYesSlot: pHi.YesSlot, UpperNoSlot: pHi.NoSlot,
				RangeYesSlot: child.YesSlot, RangeNoSlot: child.NoSlot,
				LowerYesToken: pLo.YesTokenID, LowerNoToken: pLo.NoTokenID,
				UpperYesToken: pHi.YesTokenID, UpperNoToken: pHi.NoTokenID,
				RangeYesToken: child.YesTokenID, RangeNoToken: child.NoTokenID,
				NegRisk:   pLo.NegRisk,
				cooldowns: make(map[types.StrategyTag]int64),
			}
			trioIdx := len(g.Trios)
			g.Trios = append(g.Trios, trio)
			trioCount++

			legs := []legSpec{
				{pLo.YesTokenID, types.LegParentLowerYes},
				{pHi.NoTokenID, types.LegParentUpperNo},
				{child.NoTokenID, types.LegRangeNo},
				{pLo.NoTokenID, types.LegParentLowerNo},
				{child.YesTokenID, types.LegRangeYes},
				{pHi.YesTokenID, types.LegParentUpperYes},
			}
			for _, leg := range legs {
				st.registerRole(leg.token, types.TokenRole{
					Kind: types.RoleTrioLeg, GroupKey: gd.Key,
					TrioIndex: trioIdx, LegRole: leg.role,
				})
				g.TrioLookupByAsset[leg.token] = append(g.TrioLookupByAsset[leg.token], trioIdx)
			}
		}

		st.Groups[gd.Key] = g
	}

	return st, trioCount
}

func (s *Structure) registerRole(tokenID string, role types.TokenRole) {
	s.TokenIndex[tokenID] = append(s.TokenIndex[tokenID], role)
}
