package dtb

import "testing"

func buildLookupTree(t *testing.T) *Node {
	t.Helper()
	b := newBlobBuilder()
	b.beginNode("")
	b.beginNode("soc")
	b.beginNode("uart@10000000")
	b.endNode()
	b.beginNode("gpio@20000000")
	b.endNode()
	b.endNode()
	b.beginNode("chosen")
	b.endNode()
	b.endNode()
	b.putU32(tokenEnd)

	root, err := parseStruct(b.structBlock, b.stringsBlock, newTestArena(t))
	if err != nil {
		t.Fatalf("parseStruct: %v", err)
	}
	return root
}

func TestLookupNodeRoot(t *testing.T) {
	root := buildLookupTree(t)
	if got := LookupNode(root, ""); got != root {
		t.Fatal("expected an empty path to resolve to root")
	}
	if got := LookupNode(root, "/"); got != root {
		t.Fatal("expected \"/\" to resolve to root")
	}
}

func TestLookupNodeExactPath(t *testing.T) {
	root := buildLookupTree(t)
	got := LookupNode(root, "/soc/uart@10000000")
	if got == nil || got.Name != "uart@10000000" {
		t.Fatalf("expected /soc/uart@10000000 to resolve; got %+v", got)
	}
}

func TestLookupNodeBareComponentMatchesUnitAddress(t *testing.T) {
	root := buildLookupTree(t)
	got := LookupNode(root, "/soc/gpio")
	if got == nil || got.Name != "gpio@20000000" {
		t.Fatalf("expected /soc/gpio to resolve to gpio@20000000; got %+v", got)
	}
}

func TestLookupNodeSingleComponent(t *testing.T) {
	root := buildLookupTree(t)
	got := LookupNode(root, "chosen")
	if got == nil || got.Name != "chosen" {
		t.Fatalf("expected chosen to resolve; got %+v", got)
	}
}

func TestLookupNodeUnknownComponentReturnsNil(t *testing.T) {
	root := buildLookupTree(t)
	if got := LookupNode(root, "/soc/does-not-exist"); got != nil {
		t.Fatalf("expected an unknown component to return nil; got %+v", got)
	}
}

func TestLookupNodeUnknownTopLevelReturnsNil(t *testing.T) {
	root := buildLookupTree(t)
	if got := LookupNode(root, "/nope"); got != nil {
		t.Fatalf("expected an unknown top-level component to return nil; got %+v", got)
	}
}
