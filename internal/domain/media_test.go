package domain

import (
	"testing"
)

func TestSortName(t *testing.T) {
	cases := map[string]string{
		"The Beatles":   "beatles",
		"A Perfect Day": "perfect day",
		"Los Lobos":     "lobos",
		"Motörhead":     "motorhead",
		"Theory":        "theory",
		"  Weezer  ":    "weezer",
	}
	for input, want := range cases {
		if got := SortName(input); got != want {
			t.Errorf("SortName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSearchQuery(t *testing.T) {
	if got := SearchQuery(`AC/DC's "Best"`); got != "AC DCs Best" {
		t.Errorf("SearchQuery = %q", got)
	}
}

func TestMakeAndParseURI(t *testing.T) {
	uri := MakeURI("filesystem", MediaTypeTrack, "Artist/Album/01 Song.mp3")
	if uri != "filesystem://track/Artist/Album/01 Song.mp3" {
		t.Fatalf("unexpected uri %q", uri)
	}

	providerDomain, mt, itemID, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI failed: %v", err)
	}
	if providerDomain != "filesystem" || mt != MediaTypeTrack || itemID != "Artist/Album/01 Song.mp3" {
		t.Errorf("ParseURI = (%q, %q, %q)", providerDomain, mt, itemID)
	}

	for _, bad := range []string{"", "noscheme", "x://badtype/1", "x://track/"} {
		if _, _, _, err := ParseURI(bad); err == nil {
			t.Errorf("ParseURI(%q) should fail", bad)
		}
	}
}

func TestMappingSetAddRemove(t *testing.T) {
	var set MappingSet
	set = set.Add(ProviderMapping{ItemID: "a", ProviderInstance: "fs1"})
	set = set.Add(ProviderMapping{ItemID: "b", ProviderInstance: "fs2"})
	// same (instance, item id) replaces instead of duplicating
	set = set.Add(ProviderMapping{ItemID: "a", ProviderInstance: "fs1", Available: true})
	if len(set) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(set))
	}
	if pm, ok := set.MappingFor("fs1"); !ok || !pm.Available {
		t.Errorf("fs1 mapping not updated: %+v ok=%v", pm, ok)
	}

	set = set.Remove("fs1")
	if len(set) != 1 {
		t.Fatalf("expected 1 mapping after remove, got %d", len(set))
	}
	if _, ok := set.MappingFor("fs1"); ok {
		t.Error("fs1 mapping should be gone")
	}
}

func TestSearchResultMergeCount(t *testing.T) {
	a := SearchResult{Artists: []Artist{{Name: "x"}}}
	b := SearchResult{Tracks: []Track{{Name: "y"}, {Name: "z"}}}
	a.Merge(&b)
	a.Merge(nil)
	if a.Count() != 3 {
		t.Errorf("Count = %d, want 3", a.Count())
	}
}
