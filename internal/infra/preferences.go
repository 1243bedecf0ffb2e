package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
)

const preferencesFileName = "preferences.json"

// preferencesFile is the on-disk layout. String lists are kept as the JSON
// array text the settings UI wrote, so a malformed list survives a round trip
// and is rejected by the policy loader rather than by this store.
type preferencesFile struct {
	Lists    map[string]string `json:"lists,omitempty"`
	Flags    map[string]bool   `json:"flags,omitempty"`
	Instance *domain.Instance  `json:"instance,omitempty"`
}

// FilePreferences implements domain.PolicyStore, domain.PolicyWriter and
// domain.InstanceRegistry on a JSON file. Writers serialize on a flock and
// replace the file atomically.
type FilePreferences struct {
	path string
}

// NewFilePreferences creates a preference store in dataDir.
func NewFilePreferences(dataDir string) *FilePreferences {
	return &FilePreferences{path: filepath.Join(dataDir, preferencesFileName)}
}

// NewFilePreferencesWithPath creates a store at a specific path (for testing).
func NewFilePreferencesWithPath(path string) *FilePreferences {
	return &FilePreferences{path: path}
}

// Path returns the preference file path.
func (p *FilePreferences) Path() string {
	return p.path
}

// GetStringList returns the raw JSON list text stored under key.
func (p *FilePreferences) GetStringList(key string) (string, error) {
	f, err := p.read()
	if err != nil {
		return "", err
	}
	return f.Lists[key], nil
}

// GetBool returns the flag stored under key.
func (p *FilePreferences) GetBool(key string) (bool, error) {
	f, err := p.read()
	if err != nil {
		return false, err
	}
	return f.Flags[key], nil
}

// SetStringList stores values as a JSON array.
func (p *FilePreferences) SetStringList(key string, values []string) error {
	return p.SetRawList(key, policy.EncodeList(values))
}

// SetRawList stores raw list text verbatim, the way a foreign writer would.
func (p *FilePreferences) SetRawList(key, raw string) error {
	return p.update(func(f *preferencesFile) {
		if f.Lists == nil {
			f.Lists = make(map[string]string)
		}
		f.Lists[key] = raw
	})
}

// SetBool stores a flag.
func (p *FilePreferences) SetBool(key string, value bool) error {
	return p.update(func(f *preferencesFile) {
		if f.Flags == nil {
			f.Flags = make(map[string]bool)
		}
		f.Flags[key] = value
	})
}

// Register saves the running instance.
func (p *FilePreferences) Register(instance domain.Instance) error {
	if instance.LastHeartbeat.IsZero() {
		instance.LastHeartbeat = instance.StartedAt
	}
	return p.update(func(f *preferencesFile) {
		f.Instance = &instance
	})
}

// Heartbeat refreshes the liveness timestamp of the registered instance.
func (p *FilePreferences) Heartbeat(at time.Time) error {
	var missing bool
	err := p.update(func(f *preferencesFile) {
		if f.Instance == nil {
			missing = true
			return
		}
		f.Instance.LastHeartbeat = at
	})
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("no instance registered")
	}
	return nil
}

// Lookup returns the registered instance, or nil if none.
func (p *FilePreferences) Lookup() (*domain.Instance, error) {
	f, err := p.read()
	if err != nil {
		return nil, err
	}
	return f.Instance, nil
}

func (p *FilePreferences) read() (*preferencesFile, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &preferencesFile{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return &preferencesFile{}, nil
	}

	var f preferencesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: preferences file %s: %v", domain.ErrDataCorruption, p.path, err)
	}
	return &f, nil
}

// update runs a locked read-modify-write cycle.
func (p *FilePreferences) update(mutate func(*preferencesFile)) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	lockFile, err := os.OpenFile(p.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	f, err := p.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every write.
		f = &preferencesFile{}
	}
	mutate(f)
	return p.atomicWrite(f)
}

// atomicWrite writes the file atomically (write + rename).
func (p *FilePreferences) atomicWrite(f *preferencesFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", p.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FilePreferences implements the store interfaces.
var (
	_ domain.PolicyStore      = (*FilePreferences)(nil)
	_ domain.PolicyWriter     = (*FilePreferences)(nil)
	_ domain.InstanceRegistry = (*FilePreferences)(nil)
)
