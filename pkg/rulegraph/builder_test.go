package rulegraph

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	charmlog "github.com/charmbracelet/log"
)

func testLogger() *charmlog.Logger {
	return charmlog.New(&bytes.Buffer{})
}

func buildFromFiles(t *testing.T, files map[string]string) *Graph {
	t.Helper()
	dir := t.TempDir()
	var names []string
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	b := NewBuilder(testLogger())
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := b.AddFile(path); err != nil {
			t.Fatalf("AddFile(%s): %v", name, err)
		}
	}
	return b.Finish()
}

func edgeSet(g *Graph) map[Edge]int {
	set := make(map[Edge]int)
	for _, e := range g.Edges() {
		set[e]++
	}
	return set
}

func TestBuildSyslogPair(t *testing.T) {
	g := buildFromFiles(t, map[string]string{
		"0010-syslog_rules.xml": `
<group name="syslog,">
  <rule id="100001" level="5">
    <description>Syslog catch-all.</description>
  </rule>
  <rule id="100002" level="7">
    <if_sid>100001</if_sid>
    <if_group>syslog</if_group>
    <description>Escalation.</description>
  </rule>
</group>`,
	})

	n1 := g.Node("100001")
	if n1 == nil || !n1.Defined() {
		t.Fatal("rule 100001 missing")
	}
	if !reflect.DeepEqual(n1.Groups, []string{"syslog"}) {
		t.Errorf("groups = %v, want [syslog]", n1.Groups)
	}

	// 100002 references 100001 twice, once by id and once through the
	// syslog group. Both edges exist with their own kinds.
	set := edgeSet(g)
	if set[Edge{From: "100001", To: "100002", Kind: EdgeIfSID}] != 1 {
		t.Error("missing if_sid edge 100001->100002")
	}
	if set[Edge{From: "100001", To: "100002", Kind: EdgeIfGroup}] != 1 {
		t.Error("missing if_group edge 100001->100002")
	}
	// 100002 inherits syslog membership and registers it before its own
	// references resolve, so the if_group reference also loops back.
	if set[Edge{From: "100002", To: "100002", Kind: EdgeIfGroup}] != 1 {
		t.Error("missing self-edge through inherited group")
	}
	if g.OutDegree("100001") != 2 {
		t.Errorf("OutDegree(100001) = %d, want 2", g.OutDegree("100001"))
	}
	if g.InDegree("100002") != 3 {
		t.Errorf("InDegree(100002) = %d, want 3", g.InDegree("100002"))
	}
}

func TestBuildGroupResolutionIsOrderSensitive(t *testing.T) {
	g := buildFromFiles(t, map[string]string{
		"a.xml": `
<group name="g">
  <rule id="1" level="1"><group>web</group><description>early member</description></rule>
  <rule id="2" level="1"><if_group>web</if_group><description>links to early members only</description></rule>
  <rule id="3" level="1"><group>web</group><description>late member</description></rule>
</group>`,
	})

	set := edgeSet(g)
	if set[Edge{From: "1", To: "2", Kind: EdgeIfGroup}] != 1 {
		t.Error("missing edge from earlier group member")
	}
	if set[Edge{From: "3", To: "2", Kind: EdgeIfGroup}] != 0 {
		t.Error("later group member must not contribute an edge")
	}
}

func TestBuildSelfReference(t *testing.T) {
	g := buildFromFiles(t, map[string]string{
		"a.xml": `
<group name="g">
  <rule id="9" level="1">
    <group>mygroup</group>
    <if_group>mygroup</if_group>
    <description>References its own group.</description>
  </rule>
</group>`,
	})

	// The rule registers its group membership before its references are
	// resolved, so it links to itself.
	set := edgeSet(g)
	if set[Edge{From: "9", To: "9", Kind: EdgeIfGroup}] != 1 {
		t.Error("missing self-loop via own group")
	}
}

func TestBuildOverwriteAcrossFiles(t *testing.T) {
	files := map[string]string{
		// Overwrite file sorts before the file defining the base rule.
		"0001-local.xml": `
<group name="local">
  <rule id="5001" level="12" maxsize="2048" overwrite="yes">
    <description>Hardened variant.</description>
  </rule>
</group>`,
		"0100-base.xml": `
<group name="base">
  <rule id="5001" level="5">
    <description>Stock rule.</description>
  </rule>
  <rule id="5002" level="3">
    <if_sid>5001</if_sid>
    <description>Child.</description>
  </rule>
</group>`,
	}

	g := buildFromFiles(t, files)
	n := g.Node("5001")
	if n.Level != "12" || n.Maxsize != "2048" {
		t.Errorf("overwrite not applied: level=%q maxsize=%q", n.Level, n.Maxsize)
	}
	if n.Description != "Hardened variant." {
		t.Errorf("description = %q", n.Description)
	}
	if n.File != "0001-local.xml" {
		t.Errorf("file = %q, want overwrite's file", n.File)
	}
	if !reflect.DeepEqual(n.Groups, []string{"base"}) {
		t.Errorf("groups = %v, overwrite must not touch groups", n.Groups)
	}

	// An overwrite patches attributes only; the edge set must be identical
	// to a build without the overwrite file.
	plain := buildFromFiles(t, map[string]string{"0100-base.xml": files["0100-base.xml"]})
	if !reflect.DeepEqual(edgeSet(g), edgeSet(plain)) {
		t.Errorf("edge sets differ: %v vs %v", edgeSet(g), edgeSet(plain))
	}
}

func TestBuildOverwriteMixedCaseFlag(t *testing.T) {
	dir := t.TempDir()
	content := `
<group name="base">
  <rule id="5001" level="5">
    <description>Stock rule.</description>
  </rule>
  <rule id="5001" level="12" overwrite="Yes">
    <description>Hardened variant.</description>
  </rule>
</group>`
	path := filepath.Join(dir, "a.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(testLogger())
	if err := b.AddFile(path); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	g := b.Finish()

	// A capitalized flag is still an overwrite, not a duplicate base rule.
	if b.Duplicates() != 0 {
		t.Errorf("duplicates = %d, want 0", b.Duplicates())
	}
	n := g.Node("5001")
	if n.Level != "12" || n.Description != "Hardened variant." {
		t.Errorf("overwrite not applied: level=%q description=%q", n.Level, n.Description)
	}
}

func TestBuildOverwriteKeepsBaseFieldsWhenAbsent(t *testing.T) {
	g := buildFromFiles(t, map[string]string{
		"a.xml": `
<group name="g">
  <rule id="7" level="4" maxsize="512"><description>Base.</description></rule>
  <rule id="7" overwrite="yes"><description></description></rule>
</group>`,
	})

	n := g.Node("7")
	if n.Level != "4" {
		t.Errorf("empty overwrite level replaced base: %q", n.Level)
	}
	if n.Description != "Base." {
		t.Errorf("empty overwrite description replaced base: %q", n.Description)
	}
	if n.Maxsize != "512" {
		t.Errorf("absent overwrite maxsize replaced base: %q", n.Maxsize)
	}
	if n.File != "a.xml" {
		t.Errorf("file = %q", n.File)
	}
}

func TestBuildOverwriteUnknownRuleDropped(t *testing.T) {
	g := buildFromFiles(t, map[string]string{
		"a.xml": `
<group name="g">
  <rule id="1" level="1"><if_sid>999</if_sid><description>creates placeholder 999</description></rule>
  <rule id="999" level="9" overwrite="yes"><description>patch a placeholder</description></rule>
  <rule id="888" level="9" overwrite="yes"><description>patch nothing</description></rule>
</group>`,
	})

	// 999 exists only as a placeholder; the overwrite must not promote it.
	if n := g.Node("999"); n.Defined() || n.Level != "" {
		t.Errorf("overwrite patched placeholder: %+v", n)
	}
	if g.HasNode("888") {
		t.Error("overwrite for unknown rule created a node")
	}
}

func TestBuildDuplicateKeepsFirst(t *testing.T) {
	b := NewBuilder(testLogger())
	dir := t.TempDir()
	path := filepath.Join(dir, "a.xml")
	content := `
<group name="g">
  <rule id="5" level="1"><description>first</description></rule>
  <rule id="5" level="2"><if_sid>1</if_sid><description>second</description></rule>
</group>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFile(path); err != nil {
		t.Fatal(err)
	}
	g := b.Finish()

	if b.Duplicates() != 1 {
		t.Errorf("Duplicates() = %d, want 1", b.Duplicates())
	}
	if g.Node("5").Description != "first" {
		t.Errorf("duplicate replaced first definition: %q", g.Node("5").Description)
	}
	// The duplicate's references are discarded along with it.
	if g.HasNode("1") {
		t.Error("duplicate's if_sid created an edge")
	}
}

func TestBuildSkipsUnreadableFile(t *testing.T) {
	b := NewBuilder(testLogger())
	if err := b.AddFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("AddFile on missing file should error")
	}
	if b.FilesParsed() != 0 {
		t.Errorf("FilesParsed() = %d, want 0", b.FilesParsed())
	}
}
