package reward

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Policy is the table of fixed rewards. It is loaded from a versioned TOML file so reward
// changes do not need a deployment.
type Policy struct {
	Version string

	// WelcomeBonus is the fixed welcome bonus. Zero means the amount chosen by the client is
	// accepted.
	WelcomeBonus decimal.Decimal

	Tasks map[string]decimal.Decimal
}

type policyFile struct {
	Version      string         `toml:"version"`
	WelcomeBonus any            `toml:"welcome_bonus"`
	Tasks        map[string]any `toml:"tasks"`
}

func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read reward policy: %w", err)
	}

	return ParsePolicy(string(data))
}

func ParsePolicy(data string) (*Policy, error) {
	var file policyFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("cannot decode reward policy: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown reward policy keys: %s", strings.Join(keys, ", "))
	}

	if file.Version == "" {
		return nil, errors.New("reward policy has no version")
	}

	policy := &Policy{
		Version: file.Version,
		Tasks:   make(map[string]decimal.Decimal, len(file.Tasks)),
	}

	if file.WelcomeBonus != nil {
		policy.WelcomeBonus, err = toDecimal(file.WelcomeBonus)
		if err != nil {
			return nil, fmt.Errorf("invalid welcome_bonus: %w", err)
		}

		if policy.WelcomeBonus.IsNegative() {
			return nil, errors.New("welcome_bonus must not be negative")
		}
	}

	for task, value := range file.Tasks {
		amount, err := toDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("invalid reward of task %s: %w", task, err)
		}

		if !amount.IsPositive() {
			return nil, fmt.Errorf("reward of task %s must be positive", task)
		}

		policy.Tasks[task] = amount
	}

	return policy, nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported value %v", value)
	}
}

// RewardOf returns the fixed reward of a task.
func (p *Policy) RewardOf(taskID string) (decimal.Decimal, bool) {
	amount, ok := p.Tasks[taskID]
	return amount, ok
}

func (p *Policy) TaskIDs() []string {
	ids := make([]string, 0, len(p.Tasks))
	for id := range p.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
