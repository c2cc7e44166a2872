package layers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

func patternCO(t *testing.T) *entities.Structure {
	t.Helper()
	s, err := entities.NewStructure(
		[]entities.Atom{
			{ID: 1, Element: "C"},
			{ID: 2, Element: "O"},
		},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 1}},
	)
	require.NoError(t, err)
	return s
}

func TestNewRuleAcceptsValidScript(t *testing.T) {
	rule, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpAddAtom, AtomID: 10, Element: "H"},
		{Kind: OpAddBond, AtomID: 1, Other: 10, Order: 1},
		{Kind: OpModifyBond, AtomID: 1, Other: 2, Order: 2},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, rule.Script(), 3)
}

func TestNewRuleRejectsUnknownReference(t *testing.T) {
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpAddBond, AtomID: 1, Other: 99, Order: 1},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsReferenceBeforeIntroduction(t *testing.T) {
	// The bond references identifier 10 before the add-atom introduces it.
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpAddBond, AtomID: 1, Other: 10, Order: 1},
		{Kind: OpAddAtom, AtomID: 10, Element: "H"},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsReferenceAfterRemoval(t *testing.T) {
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpRemoveAtom, AtomID: 2},
		{Kind: OpModifyAtom, AtomID: 2, Element: "N"},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsAddAtomReusingIdentifier(t *testing.T) {
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpAddAtom, AtomID: 1, Element: "H"},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsEmptyModify(t *testing.T) {
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpModifyAtom, AtomID: 1},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsNonPositiveBondOrder(t *testing.T) {
	_, err := NewRule(patternCO(t), []EditOp{
		{Kind: OpAddAtom, AtomID: 10, Element: "H"},
		{Kind: OpAddBond, AtomID: 1, Other: 10},
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsHintOutsidePattern(t *testing.T) {
	_, err := NewRule(patternCO(t), nil, []GroupHint{
		{PatternID: 99, Kind: HintMerge},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestNewRuleRejectsUnlabeledSplit(t *testing.T) {
	_, err := NewRule(patternCO(t), nil, []GroupHint{
		{PatternID: 1, Kind: HintSplit},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestBaseLayerDefaultsToEmpty(t *testing.T) {
	layer := NewBaseLayer(nil)
	base, ok := layer.Base()
	require.True(t, ok)
	assert.Equal(t, 0, base.AtomCount())
	assert.Equal(t, KindBase, layer.Kind())
	assert.False(t, layer.ID().IsZero())
}

func TestLayerJSONRoundTripPreservesID(t *testing.T) {
	layer, err := NewRuleLayer(patternCO(t), []EditOp{
		{Kind: OpAddAtom, AtomID: 10, Element: "H"},
		{Kind: OpAddBond, AtomID: 2, Other: 10, Order: 1},
	}, []GroupHint{{PatternID: 1, Kind: HintMerge}})
	require.NoError(t, err)

	data, err := json.Marshal(layer)
	require.NoError(t, err)

	var decoded Layer
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, layer.ID(), decoded.ID())
	assert.Equal(t, KindRule, decoded.Kind())

	rule, ok := decoded.Rule()
	require.True(t, ok)
	assert.Len(t, rule.Script(), 2)
	assert.Len(t, rule.Hints(), 1)
}

func TestLayerUnmarshalRejectsMalformedRule(t *testing.T) {
	payload := `{"kind":"rule","pattern":{"atoms":[{"id":1,"element":"C"}],"bonds":[]},` +
		`"script":[{"op":"remove-bond","atom":1,"other":5}]}`
	var decoded Layer
	err := json.Unmarshal([]byte(payload), &decoded)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMalformedRule(err))
}

func TestSummarize(t *testing.T) {
	base, err := entities.NewStructure([]entities.Atom{{ID: 1, Element: "C"}}, nil)
	require.NoError(t, err)

	layer := NewBaseLayer(base)
	summary := layer.Summarize(0)
	assert.Equal(t, 0, summary.Index)
	assert.Equal(t, KindBase, summary.Kind)
	assert.Equal(t, 1, summary.AtomCount)

	ruleLayer, err := NewRuleLayer(patternCO(t), []EditOp{
		{Kind: OpModifyAtom, AtomID: 1, Element: "N"},
	}, nil)
	require.NoError(t, err)
	summary = ruleLayer.Summarize(3)
	assert.Equal(t, 3, summary.Index)
	assert.Equal(t, 2, summary.PatternAtoms)
	assert.Equal(t, 1, summary.Operations)
}
