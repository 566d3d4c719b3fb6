// Package dictionary rewrites game-specific tokens (item links, slang) before
// chat text is sent for translation.
package dictionary

import (
	"regexp"
	"strings"
)

// Entry is one key -> replacement pair.
type Entry struct {
	Key   string
	Value string
}

type rule struct {
	re    *regexp.Regexp
	value string
}

// Dictionary is an immutable, ordered set of entries. Order matters: Substitute
// applies entries one after another over the progressively rewritten text, so a
// later key can match text produced by an earlier replacement.
type Dictionary struct {
	entries []Entry
	index   map[string]int
	rules   []rule
}

// New builds a dictionary from entries. A repeated key keeps its first
// position and takes the last value.
func New(entries []Entry) *Dictionary {
	d := &Dictionary{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if i, ok := d.index[e.Key]; ok {
			d.entries[i].Value = e.Value
			continue
		}
		d.index[e.Key] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	d.rules = make([]rule, 0, len(d.entries))
	for _, e := range d.entries {
		if e.Key == "" {
			continue
		}
		d.rules = append(d.rules, rule{
			re:    regexp.MustCompile("(?i)" + regexp.QuoteMeta(e.Key)),
			value: e.Value,
		})
	}
	return d
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the entries in iteration order.
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}
	return append([]Entry(nil), d.entries...)
}

// Lookup finds an exact (case-sensitive) key.
func (d *Dictionary) Lookup(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.entries[i].Value, true
}

// With returns a copy of d where key maps to value. An existing key is
// updated in place, a new key is appended.
func (d *Dictionary) With(key, value string) *Dictionary {
	entries := d.Entries()
	if d != nil {
		if i, ok := d.index[key]; ok {
			entries[i].Value = value
			return New(entries)
		}
	}
	return New(append(entries, Entry{Key: key, Value: value}))
}

// Substitute replaces every case-insensitive occurrence of each key with its
// value. Matching is literal and ignores word boundaries.
func (d *Dictionary) Substitute(text string) string {
	if d == nil || text == "" {
		return text
	}
	for _, r := range d.rules {
		text = r.re.ReplaceAllLiteralString(text, r.value)
	}
	return text
}

// Merge returns local followed by the remote entries whose key, compared
// without case, is not already a local key. Local entries are never replaced.
func Merge(local, remote *Dictionary) *Dictionary {
	seen := make(map[string]struct{}, local.Len())
	entries := local.Entries()
	for _, e := range entries {
		seen[strings.ToLower(e.Key)] = struct{}{}
	}
	for _, e := range remote.Entries() {
		if _, ok := seen[strings.ToLower(e.Key)]; ok {
			continue
		}
		entries = append(entries, e)
	}
	return New(entries)
}

// Default is the built-in dictionary written on first use.
func Default() *Dictionary {
	return New([]Entry{
		{"xpam", "temple"},
		{"cnc", "thank you"},
		{"co+", "spec ops +"},
		{"Co+", "spec ops +"},
		{"[Link 2 D: Ship_race3_m_t5_craftuniq]", "[Tornado]"},
		{"[Link 2 D: Ship_race3_L_T5_PREMIUM]", "[Mammoth]"},
		{"[link 2 d:Ship_Race3_M_T5_CraftUniq]", "[Tornado]"},
		{"[link 2 d:Ship_Race3_L_T5_Premium]", "[Mammoth]"},
		{"[link 11 d:Relics_craft_part]", "[Synthetic polycrystal]"},
		{"[link 11 d:pve_resource]", "[Insignia]"},
		{"[link 2 d:Ship_Race5_L_ENGINEER_Rank8]", "[Waz'Got]"},
		{"со+", "spec ops+"},
		{"[LINK 1 D: Weapon_Corrosivegun_T5_Rel]", "[Tai'thaq 17]"},
		{"[link 1 d:Weapon_CorrosiveGun_T5_Rel]", "[Tai'thaq 17]"},
		{"[link 11 d:Ship_Race2_S_T5_Uniq_part]", "[Special part of the ship “Kusarigama”]"},
	})
}
