// Package roster loads the read-only bus and user lookup data from YAML.
package roster

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// file is the on-disk roster layout.
type file struct {
	Buses []struct {
		Code           string `yaml:"code"`
		Name           string `yaml:"name"`
		OpeningBalance string `yaml:"opening_balance"`
	} `yaml:"buses"`
	Users []models.User `yaml:"users"`
}

// Roster implements secondary.Roster over an in-memory copy of the file.
type Roster struct {
	buses map[string]models.Bus
	users map[string]models.User
}

var _ secondary.Roster = (*Roster)(nil)

// New builds a roster from explicit values. Bus codes are upper-cased.
func New(buses []models.Bus, users []models.User) *Roster {
	r := &Roster{
		buses: make(map[string]models.Bus, len(buses)),
		users: make(map[string]models.User, len(users)),
	}
	for _, b := range buses {
		b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
		r.buses[b.Code] = b
	}
	for _, u := range users {
		r.users[NormalizeSender(u.ID)] = u
	}
	return r
}

// Load reads a roster YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return Parse(data)
}

// Parse decodes roster YAML.
func Parse(data []byte) (*Roster, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	buses := make([]models.Bus, 0, len(f.Buses))
	for _, b := range f.Buses {
		if strings.TrimSpace(b.Code) == "" {
			return nil, fmt.Errorf("roster bus without code")
		}
		bal := decimal.Zero
		if b.OpeningBalance != "" {
			d, err := decimal.NewFromString(b.OpeningBalance)
			if err != nil {
				return nil, fmt.Errorf("bus %s has invalid opening balance %q: %w", b.Code, b.OpeningBalance, err)
			}
			bal = d
		}
		buses = append(buses, models.Bus{Code: b.Code, Name: b.Name, OpeningBalance: bal})
	}
	return New(buses, f.Users), nil
}

// Bus looks up a bus by case-insensitive code.
func (r *Roster) Bus(code string) (models.Bus, bool) {
	b, ok := r.buses[strings.ToUpper(strings.TrimSpace(code))]
	return b, ok
}

// Buses returns every bus ordered by code.
func (r *Roster) Buses() []models.Bus {
	out := make([]models.Bus, 0, len(r.buses))
	for _, b := range r.buses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// User looks up an authorized user.
func (r *Roster) User(id string) (models.User, bool) {
	u, ok := r.users[NormalizeSender(id)]
	return u, ok
}

// Authorized reports whether a sender may use the bot. With no users
// configured every sender is allowed.
func (r *Roster) Authorized(senderID string) bool {
	if len(r.users) == 0 {
		return true
	}
	_, ok := r.users[NormalizeSender(senderID)]
	return ok
}

// NormalizeSender strips a transport suffix such as "@s.whatsapp.net" and a
// leading "+" so ids compare equal across transports.
func NormalizeSender(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	return strings.TrimPrefix(id, "+")
}
