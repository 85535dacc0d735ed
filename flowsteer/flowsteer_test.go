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

package flowsteer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInstaller rejects a configurable set of patterns so tests can
// exercise the fallback cascade deterministically.
type fakeInstaller struct {
	rejectValidate map[Pattern]bool
	rejectCreate   map[Pattern]bool
	created        []Rule
	destroyed      []int
}

func (f *fakeInstaller) Validate(rule Rule) error {
	if f.rejectValidate[rule.Pattern] {
		return errors.New("unsupported pattern")
	}
	return nil
}

func (f *fakeInstaller) Create(rule Rule) (Handle, error) {
	if f.rejectCreate[rule.Pattern] {
		return nil, errors.New("create failed")
	}
	f.created = append(f.created, rule)
	return rule.Pattern, nil
}

func (f *fakeInstaller) Destroy(portID int, handle Handle) error {
	f.destroyed = append(f.destroyed, portID)
	return nil
}

func TestManagerInstallPrefersFirstPattern(t *testing.T) {
	installer := &fakeInstaller{}
	m := NewManager(installer, 5)
	require.NoError(t, m.Install(3))
	require.Len(t, installer.created, 1)
	assert.Equal(t, PatternVLANAnyOuter, installer.created[0].Pattern)
}

func TestManagerInstallFallsBackToSecondPattern(t *testing.T) {
	installer := &fakeInstaller{rejectValidate: map[Pattern]bool{PatternVLANAnyOuter: true}}
	m := NewManager(installer, 5)
	require.NoError(t, m.Install(3))
	require.Len(t, installer.created, 1)
	assert.Equal(t, PatternVLANExplicit, installer.created[0].Pattern)
}

func TestManagerInstallFallsBackToUntagged(t *testing.T) {
	installer := &fakeInstaller{rejectValidate: map[Pattern]bool{
		PatternVLANAnyOuter:  true,
		PatternVLANExplicit: true,
	}}
	m := NewManager(installer, 5)
	require.NoError(t, m.Install(3))
	require.Len(t, installer.created, 1)
	assert.Equal(t, PatternUntagged, installer.created[0].Pattern)
}

func TestManagerInstallAllPatternsFail(t *testing.T) {
	installer := &fakeInstaller{rejectCreate: map[Pattern]bool{
		PatternVLANAnyOuter:  true,
		PatternVLANExplicit: true,
		PatternUntagged:     true,
	}}
	m := NewManager(installer, 5)
	require.Error(t, m.Install(3))
}

func TestManagerRemoveDestroysHandle(t *testing.T) {
	installer := &fakeInstaller{}
	m := NewManager(installer, 5)
	require.NoError(t, m.Install(3))
	require.NoError(t, m.Remove(3))
	assert.Equal(t, []int{3}, installer.destroyed)
}

func TestInstallAllFailsOnlyWhenEveryPortFails(t *testing.T) {
	installer := &fakeInstaller{rejectCreate: map[Pattern]bool{
		PatternVLANAnyOuter:  true,
		PatternVLANExplicit: true,
		PatternUntagged:     true,
	}}
	m := NewManager(installer, 5)
	err := m.InstallAll([]int{1, 2})
	require.Error(t, err)
}

func TestValidateClassifierAcceptsRealPatterns(t *testing.T) {
	for _, p := range []Pattern{PatternVLANAnyOuter, PatternVLANExplicit, PatternUntagged} {
		require.NoError(t, ValidateClassifier(p))
	}
}
