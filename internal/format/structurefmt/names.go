package structurefmt

import (
	"strconv"
	"strings"

	"github.com/blockforge/clipio/internal/volume"
)

const legacyPrefix = "clipio:legacy_"

// vanilla maps the few legacy ids with stable namespaced names.
var vanilla = map[uint16]string{
	0:  "minecraft:air",
	1:  "minecraft:stone",
	2:  "minecraft:grass_block",
	3:  "minecraft:dirt",
	4:  "minecraft:cobblestone",
	5:  "minecraft:oak_planks",
	7:  "minecraft:bedrock",
	12: "minecraft:sand",
	13: "minecraft:gravel",
	17: "minecraft:oak_log",
	20: "minecraft:glass",
	35: "minecraft:white_wool",
	49: "minecraft:obsidian",
}

var vanillaIDs = func() map[string]uint16 {
	m := make(map[string]uint16, len(vanilla))
	for id, name := range vanilla {
		m[name] = id
	}
	return m
}()

// UnknownBlock is used for palette names with no legacy id mapping.
var UnknownBlock = volume.Block{ID: 1}

// StateFromBlock returns the palette name and properties for b.
func StateFromBlock(b volume.Block) (string, map[string]string) {
	var props map[string]string
	if b.Data != 0 {
		props = map[string]string{"data": strconv.Itoa(int(b.Data))}
	}
	if name, ok := vanilla[b.ID]; ok {
		return name, props
	}
	return legacyPrefix + strconv.Itoa(int(b.ID)), props
}

// BlockFromState is the inverse of StateFromBlock. Names it does not know
// decode as UnknownBlock.
func BlockFromState(name string, props map[string]string) volume.Block {
	var data uint8
	if s, ok := props["data"]; ok {
		if n, err := strconv.ParseUint(s, 10, 4); err == nil {
			data = uint8(n)
		}
	}
	if id, ok := vanillaIDs[name]; ok {
		return volume.Block{ID: id, Data: data}
	}
	if rest, ok := strings.CutPrefix(name, legacyPrefix); ok {
		if n, err := strconv.ParseUint(rest, 10, 12); err == nil {
			return volume.Block{ID: uint16(n), Data: data}
		}
	}
	return UnknownBlock
}
