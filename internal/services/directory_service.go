package services

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ledgerbank/backend/internal/config"
	"github.com/ledgerbank/backend/internal/models"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AccountDirectory owns the account collection. Accounts are kept in insertion
// order with a username index for O(1) lookup. Usernames are unique at all
// times; lookup misses and removal of unknown usernames are normal outcomes.
type AccountDirectory struct {
	mu     sync.RWMutex
	order  []*models.Account
	byUser map[string]*models.Account
}

func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{
		byUser: make(map[string]*models.Account),
	}
}

// DeriveUsername lowercases each whitespace-separated token of the owner name
// and concatenates the first rune of each in token order. It is applied once,
// when the account enters the directory.
func DeriveUsername(owner string) string {
	var b strings.Builder
	for _, token := range strings.Fields(strings.ToLower(owner)) {
		b.WriteString(string([]rune(token)[0]))
	}
	return b.String()
}

// Seed populates the directory from the fixed startup list, deriving usernames
// and hashing pins. Seed entries missing movement dates get synthesized ones,
// spaced a week apart ending the day before now, so the movement/date length
// invariant holds before the first mutation.
func (d *AccountDirectory) Seed(seeds []config.SeedAccount, now time.Time) error {
	for _, seed := range seeds {
		pinHash, err := hashPIN(seed.PIN)
		if err != nil {
			return fmt.Errorf("hashing pin for %q: %w", seed.Owner, err)
		}

		dates := make([]time.Time, len(seed.Movements))
		for i := range seed.Movements {
			if i < len(seed.MovementDates) {
				ts, err := time.Parse(time.RFC3339, seed.MovementDates[i])
				if err != nil {
					return fmt.Errorf("parsing movement date for %q: %w", seed.Owner, err)
				}
				dates[i] = ts
				continue
			}
			dates[i] = now.AddDate(0, 0, -1-7*(len(seed.Movements)-1-i))
		}

		acc := &models.Account{
			Owner:         seed.Owner,
			Username:      DeriveUsername(seed.Owner),
			PINHash:       pinHash,
			InterestRate:  seed.InterestRate,
			Currency:      seed.Currency,
			Locale:        seed.Locale,
			Movements:     append([]float64(nil), seed.Movements...),
			MovementDates: dates,
		}
		if err := d.Add(acc); err != nil {
			return err
		}
	}
	log.Printf("[DIRECTORY] Seeded %d accounts", len(seeds))
	return nil
}

// Add inserts an account, rejecting duplicate usernames.
func (d *AccountDirectory) Add(acc *models.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byUser[acc.Username]; exists {
		return fmt.Errorf("duplicate username %q", acc.Username)
	}
	d.order = append(d.order, acc)
	d.byUser[acc.Username] = acc
	return nil
}

// FindByUsername returns the matching account or nil. Absence is a valid,
// expected outcome the caller must handle.
func (d *AccountDirectory) FindByUsername(username string) *models.Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byUser[username]
}

// Remove deletes the account; it is a silent no-op when the username is
// unknown.
func (d *AccountDirectory) Remove(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byUser[username]; !exists {
		return
	}
	delete(d.byUser, username)
	for i, acc := range d.order {
		if acc.Username == username {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of accounts in the directory.
func (d *AccountDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// VerifyPIN checks the submitted pin against the stored hash.
func (d *AccountDirectory) VerifyPIN(acc *models.Account, pin string) bool {
	return verifyPIN(pin, acc.PINHash)
}

type argonParams struct {
	time, memory, keyLength, saltLength uint32
	threads                             uint8
}

func loadArgonParams() argonParams {
	p := argonParams{
		time:       uint32(viper.GetInt("argon2.time")),
		memory:     uint32(viper.GetInt("argon2.memory")),
		threads:    uint8(viper.GetInt("argon2.threads")),
		keyLength:  uint32(viper.GetInt("argon2.key_length")),
		saltLength: uint32(viper.GetInt("argon2.salt_length")),
	}
	if p.time == 0 {
		p.time = 1
	}
	if p.memory == 0 {
		p.memory = 64 * 1024
	}
	if p.threads == 0 {
		p.threads = 4
	}
	if p.keyLength == 0 {
		p.keyLength = 32
	}
	if p.saltLength == 0 {
		p.saltLength = 16
	}
	return p
}

func hashPIN(pin string) (string, error) {
	p := loadArgonParams()
	salt := make([]byte, p.saltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt, p.time, p.memory, p.threads, p.keyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPIN(pin, hashedPIN string) bool {
	parts := strings.Split(hashedPIN, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	p := loadArgonParams()
	computedHash := argon2.IDKey([]byte(pin), salt, p.time, p.memory, p.threads, p.keyLength)
	return string(hash) == string(computedHash)
}
