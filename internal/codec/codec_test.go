package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/symindex/internal/model"
)

func ptr[T any](v T) *T { return &v }

func sampleShard() *model.Shard {
	loc := model.Range{
		Begin:   model.Position{FileID: 1, Line: 10, Column: 2},
		End:     model.Position{FileID: 1, Line: 10, Column: 9},
		FileURI: "file:///pkg/a.cj",
	}
	sym := model.Symbol{
		ID:            42,
		Name:          "doWork",
		Scope:         "pkg.Worker",
		Kind:          model.KindMethod,
		Location:      loc,
		Declaration:   loc,
		Signature:     "func doWork(n: Int64): Unit",
		Documentation: "does the work",
		Flags:         model.FlagDeprecated,
		CommentsLeading: []model.Comment{
			{Style: model.CommentStyleLine, Kind: model.CommentLeading, Text: "// deprecated"},
		},
		CompletionItems: []model.CompletionItem{{Label: "doWork()", InsertText: "doWork($0)"}},
	}
	return &model.Shard{
		PkgName:  "pkg",
		HashCode: "abc123",
		Symbols:  []model.Symbol{sym},
		Refs: []model.RefEntry{
			{Symbol: 42, Ref: model.Ref{Symbol: 42, Location: loc, Kind: model.RefCall, Container: 7}},
		},
		Relations: []model.Relation{
			{Subject: 42, Predicate: model.OverriddenBy, Object: 43},
		},
		Extends: []model.ExtendEntry{
			{Symbol: 44, Item: model.ExtendItem{Symbol: 44, ExtendedType: 42, InterfaceName: "Runnable"}},
		},
		CrossSymbols: []model.CrossSymbol{
			{ID: 99, Name: "cDoWork", Container: 42, ContainerName: "Worker", Location: loc},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleShard()
	buf := Encode(s)

	require.NoError(t, Verify(buf))

	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestVerifyRejectsTruncated(t *testing.T) {
	buf := Encode(sampleShard())
	for cut := 0; cut < len(buf); cut += 7 {
		err := Verify(buf[:cut])
		assert.Error(t, err, "cut at %d should be rejected", cut)
	}
}

func TestVerifyRejectsBadMagic(t *testing.T) {
	buf := Encode(sampleShard())
	buf[0] ^= 0xFF
	err := Verify(buf)
	require.Error(t, err)
	var mb *MalformedBuffer
	assert.ErrorAs(t, err, &mb)
}

func TestVerifyRejectsTrailingGarbage(t *testing.T) {
	buf := Encode(sampleShard())
	buf = append(buf, 0, 1, 2, 3)
	err := Verify(buf)
	assert.Error(t, err)
}

func TestIDByteArrayRoundTrip(t *testing.T) {
	id := model.SymbolID(0x0102030405060708)
	b := IDToBytes(id)
	assert.Equal(t, id, IDFromBytes(b))
	// little-endian: least significant byte first
	assert.Equal(t, byte(0x08), b[0])
	assert.Equal(t, byte(0x01), b[7])
}

func TestEncodeEmptyShard(t *testing.T) {
	s := &model.Shard{PkgName: "empty", HashCode: "0"}
	buf := Encode(s)
	require.NoError(t, Verify(buf))
	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, s.PkgName, got.PkgName)
	assert.Empty(t, got.Symbols)
}
