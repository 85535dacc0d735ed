/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/vaporio/ptpslave/session"
)

// portEntry binds a logical ingress/egress port id to the network
// interface this deployment's NIC exposes it as.
type portEntry struct {
	ID    int    `toml:"id"`
	Iface string `toml:"iface"`
}

// sessionEntry is the on-disk form of session.Config (§3's static
// session table, loaded once at startup).
type sessionEntry struct {
	RxPortID  int    `toml:"rx_port_id"`
	RxVLAN    uint16 `toml:"rx_vlan"`
	TxPortID  int    `toml:"tx_port_id"`
	TxVLAN    uint16 `toml:"tx_vlan"`
	TxVLANIdx uint16 `toml:"tx_vlan_idx"`
}

// fileConfig is the full TOML document: the port/iface mapping plus
// the static session table.
type fileConfig struct {
	Port    []portEntry    `toml:"port"`
	Session []sessionEntry `toml:"session"`
}

// loadConfig reads and validates the TOML session table at path.
func loadConfig(path string) (fileConfig, error) {
	var c fileConfig
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return fileConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(c.Session) == 0 {
		return fileConfig{}, fmt.Errorf("config: %s declares zero sessions", path)
	}
	if len(c.Port) == 0 {
		return fileConfig{}, fmt.Errorf("config: %s declares zero ports", path)
	}
	return c, nil
}

// sessionConfigs converts the on-disk session table into
// session.Config tuples.
func (c fileConfig) sessionConfigs() []session.Config {
	out := make([]session.Config, len(c.Session))
	for i, e := range c.Session {
		out[i] = session.Config{
			RxPortID: e.RxPortID,
			RxVLAN:   e.RxVLAN,
			TxPortID: e.TxPortID,
			TxVLAN:   e.TxVLAN,
			TxVLIdx:  e.TxVLANIdx,
		}
	}
	return out
}

// ifaceByPort returns the port-id-to-interface-name mapping.
func (c fileConfig) ifaceByPort() map[int]string {
	out := make(map[int]string, len(c.Port))
	for _, p := range c.Port {
		out[p.ID] = p.Iface
	}
	return out
}
