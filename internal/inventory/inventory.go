// Package inventory loads the YAML node inventory used by batch actions.
//
// An inventory lists node groups. Each group's name may be a host list
// ("cn[01-16]"); the placeholder {name} in its id or address is replaced
// with each expanded name:
//
//	defaults:
//	  backend: ipmi
//	  credentials:
//	    user: admin
//	nodes:
//	  - name: cn[01-04]
//	    address: "{name}-bmc.lab"
//	  - name: web1
//	    backend: aws
//	    id: i-0abc123
//	    region: eu-west-1
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/util"
)

// NamePlaceholder is substituted with each expanded node name.
const NamePlaceholder = "{name}"

// File is the on-disk inventory document.
type File struct {
	Defaults domain.NodeRef `yaml:"defaults"`
	Nodes    []Group        `yaml:"nodes"`
}

// Group is one inventory entry, possibly naming several nodes.
type Group struct {
	Name           string `yaml:"name"`
	domain.NodeRef `yaml:",inline"`
}

// Node is a single resolved inventory node.
type Node struct {
	Name string
	Ref  domain.NodeRef
}

// Load reads and resolves the inventory at path.
func Load(path string) ([]Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	return Parse(data)
}

// Parse resolves an inventory document into individual nodes.
func Parse(data []byte) ([]Node, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("inventory: no nodes defined")
		}
		return nil, fmt.Errorf("inventory: %w", err)
	}
	if len(file.Nodes) == 0 {
		return nil, fmt.Errorf("inventory: no nodes defined")
	}

	var nodes []Node
	seen := make(map[string]struct{})
	for i, group := range file.Nodes {
		names, err := ExpandHostList(group.Name)
		if err != nil {
			return nil, fmt.Errorf("inventory: nodes[%d]: %w", i, err)
		}
		ref := withDefaults(group.NodeRef, file.Defaults)
		if ref.Backend == "" {
			return nil, fmt.Errorf("inventory: nodes[%d] (%s): backend is required", i, group.Name)
		}

		for _, name := range names {
			if err := util.ValidateNodeName(name); err != nil {
				return nil, fmt.Errorf("inventory: nodes[%d]: %w", i, err)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("inventory: duplicate node %q", name)
			}
			seen[name] = struct{}{}

			node := ref
			node.ID = strings.ReplaceAll(ref.ID, NamePlaceholder, name)
			node.Address = strings.ReplaceAll(ref.Address, NamePlaceholder, name)
			nodes = append(nodes, Node{Name: name, Ref: node})
		}
	}
	return nodes, nil
}

// withDefaults fills the empty fields of ref from defaults.
func withDefaults(ref, defaults domain.NodeRef) domain.NodeRef {
	ref.Backend = pick(ref.Backend, defaults.Backend)
	ref.ID = pick(ref.ID, defaults.ID)
	ref.Address = pick(ref.Address, defaults.Address)
	ref.Region = pick(ref.Region, defaults.Region)
	ref.Interface = pick(ref.Interface, defaults.Interface)
	ref.Credentials.User = pick(ref.Credentials.User, defaults.Credentials.User)
	ref.Credentials.KeyID = pick(ref.Credentials.KeyID, defaults.Credentials.KeyID)
	ref.Credentials.Secret = pick(ref.Credentials.Secret, defaults.Credentials.Secret)
	return ref
}

func pick(next, fallback string) string {
	if next != "" {
		return next
	}
	return fallback
}
