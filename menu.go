package insite

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eringen/insite/views"
)

// Menu is the sidebar configuration: entries plus the icon table their
// image keys refer to.
type Menu struct {
	Items []views.SidebarMenuItem `yaml:"menu"`
	Icons views.IconLookup        `yaml:"icons"`
}

// LoadMenu reads the sidebar menu from path, or from the built-in
// embedded/menu.yaml when path is empty.
func LoadMenu(path string) (Menu, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = fs.ReadFile(EmbeddedAssets, "embedded/menu.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return Menu{}, fmt.Errorf("read menu: %w", err)
	}
	return parseMenu(data)
}

func parseMenu(data []byte) (Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Menu{}, fmt.Errorf("parse menu: %w", err)
	}
	seen := make(map[int]bool, len(m.Items))
	for _, it := range m.Items {
		if it.Menu == "" {
			return Menu{}, fmt.Errorf("parse menu: entry %d has no label", it.ID)
		}
		if seen[it.ID] {
			return Menu{}, fmt.Errorf("parse menu: duplicate id %d", it.ID)
		}
		seen[it.ID] = true
		if _, ok := Resolve(it.Route); !ok {
			return Menu{}, fmt.Errorf("parse menu: entry %q routes to unknown path %q", it.Menu, it.Route)
		}
	}
	if m.Icons == nil {
		m.Icons = views.IconLookup{}
	}
	return m, nil
}
