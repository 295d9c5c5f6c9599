package manager

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture describes a simulated Z-Wave network for the Memory manager.
type Fixture struct {
	HomeID     uint32            `yaml:"home_id"`
	Controller ControllerFixture `yaml:"controller"`
	Nodes      []NodeFixture     `yaml:"nodes"`
}

// ControllerFixture describes the controller itself.
type ControllerFixture struct {
	NodeID          uint8  `yaml:"node_id"`
	Primary         bool   `yaml:"primary"`
	StaticUpdate    bool   `yaml:"static_update"`
	Bridge          bool   `yaml:"bridge"`
	LibraryVersion  string `yaml:"library_version"`
	LibraryTypeName string `yaml:"library_type_name"`
}

// NodeFixture describes one simulated node.
type NodeFixture struct {
	ID                uint8          `yaml:"id"`
	Name              string         `yaml:"name"`
	Location          string         `yaml:"location"`
	ProductName       string         `yaml:"product_name"`
	ProductType       string         `yaml:"product_type"`
	ProductID         string         `yaml:"product_id"`
	ManufacturerName  string         `yaml:"manufacturer_name"`
	ManufacturerID    string         `yaml:"manufacturer_id"`
	Type              string         `yaml:"type"`
	Generic           uint8          `yaml:"generic"`
	Basic             uint8          `yaml:"basic"`
	Specific          uint8          `yaml:"specific"`
	Security          uint8          `yaml:"security"`
	Version           uint8          `yaml:"version"`
	MaxBaudRate       uint32         `yaml:"max_baud_rate"`
	Neighbors         []uint8        `yaml:"neighbors"`
	Listening         bool           `yaml:"listening"`
	FrequentListening bool           `yaml:"frequent_listening"`
	Beaming           bool           `yaml:"beaming"`
	Routing           bool           `yaml:"routing"`
	SecurityDevice    bool           `yaml:"security_device"`
	Asleep            bool           `yaml:"asleep"`
	Failed            bool           `yaml:"failed"`
	CommandClasses    []uint8        `yaml:"command_classes"`
	Groups            []GroupFixture `yaml:"groups"`
	Values            []ValueFixture `yaml:"values"`
}

// GroupFixture describes one association group.
type GroupFixture struct {
	Index           uint8   `yaml:"index"`
	Label           string  `yaml:"label"`
	MaxAssociations uint8   `yaml:"max_associations"`
	Associations    []uint8 `yaml:"associations"`
}

// ValueFixture describes one value.
type ValueFixture struct {
	ID           uint64 `yaml:"id"`
	CommandClass uint8  `yaml:"command_class"`
	Genre        string `yaml:"genre"`
	Type         string `yaml:"type"`
	Index        uint8  `yaml:"index"`
	Instance     uint8  `yaml:"instance"`
	Label        string `yaml:"label"`
	Units        string `yaml:"units"`
	Help         string `yaml:"help"`
	ReadOnly     bool   `yaml:"read_only"`
	WriteOnly    bool   `yaml:"write_only"`
	Data         any    `yaml:"data"`
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	nodes := make(map[uint8]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == 0 {
			return fmt.Errorf("fixture: node id 0 is reserved")
		}
		if nodes[n.ID] {
			return fmt.Errorf("fixture: duplicate node %d", n.ID)
		}
		nodes[n.ID] = true
		ids := make(map[uint64]bool, len(n.Values))
		for _, v := range n.Values {
			if ids[v.ID] {
				return fmt.Errorf("fixture: node %d: duplicate value %d", n.ID, v.ID)
			}
			ids[v.ID] = true
			if _, err := v.genre(); err != nil {
				return fmt.Errorf("fixture: node %d value %d: %w", n.ID, v.ID, err)
			}
			if _, err := v.valueType(); err != nil {
				return fmt.Errorf("fixture: node %d value %d: %w", n.ID, v.ID, err)
			}
		}
		for _, g := range n.Groups {
			if g.Index == 0 {
				return fmt.Errorf("fixture: node %d: group index starts at 1", n.ID)
			}
		}
	}
	if f.Controller.NodeID != 0 && !nodes[f.Controller.NodeID] {
		return fmt.Errorf("fixture: controller node %d not listed", f.Controller.NodeID)
	}
	return nil
}

func (v ValueFixture) genre() (Genre, error) {
	if v.Genre == "" {
		return GenreUser, nil
	}
	return ParseGenre(v.Genre)
}

func (v ValueFixture) valueType() (ValueType, error) {
	if v.Type == "" {
		return TypeByte, nil
	}
	return ParseValueType(v.Type)
}
