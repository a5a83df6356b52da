package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"familybank/internal/core"
)

const defaultMaxCheckingAccounts = 5

// ConfigService manages members, accounts, allowance and interest
// schedules, and bank-wide settings.
type ConfigService struct {
	store  Store
	logger *slog.Logger
}

func NewConfigService(store Store, logger *slog.Logger) *ConfigService {
	return &ConfigService{store: store, logger: logger}
}

// CreateMember provisions a kid with a default checking and savings
// account, an inactive weekly allowance due next Monday, and an inactive
// 5% monthly interest schedule on savings. Everything commits together.
func (c *ConfigService) CreateMember(ctx context.Context, username, displayName, avatarColor string) (core.User, error) {
	user := core.User{
		Username:    strings.TrimSpace(username),
		DisplayName: strings.TrimSpace(displayName),
		Role:        core.RoleKid,
		AvatarColor: avatarColor,
		CreatedAt:   time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	err := c.store.WithinTx(ctx, func(s Store) error {
		created, err := s.CreateUser(ctx, user)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		user = created

		checking, err := s.CreateAccount(ctx, core.Account{
			OwnerID:   user.ID,
			Type:      core.AccountChecking,
			Nickname:  "Main",
			IsDefault: true,
			CreatedAt: user.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("creating checking account: %w", err)
		}

		savings, err := s.CreateAccount(ctx, core.Account{
			OwnerID:   user.ID,
			Type:      core.AccountSavings,
			Nickname:  "Savings",
			IsDefault: true,
			CreatedAt: user.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("creating savings account: %w", err)
		}

		monday := 0
		cfg, err := s.CreateAllowanceConfig(ctx, core.AllowanceConfig{
			UserID:            user.ID,
			Frequency:         core.Weekly,
			DayOfWeek:         &monday,
			TargetAccountType: core.AccountChecking,
			NextDueDate:       nextMonday(time.Now().UTC()),
			Active:            false,
			CreatedAt:         user.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("creating allowance config: %w", err)
		}
		if err := s.ReplaceSplits(ctx, cfg.ID, []core.AllowanceSplit{
			{ConfigID: cfg.ID, AccountID: checking.ID, Percentage: 100},
		}); err != nil {
			return fmt.Errorf("seeding allowance split: %w", err)
		}

		if _, err := s.CreateInterestConfig(ctx, core.InterestConfig{
			AccountID:  savings.ID,
			AnnualRate: 5.0,
			Frequency:  core.CompoundMonthly,
			Active:     false,
			CreatedAt:  user.CreatedAt,
		}); err != nil {
			return fmt.Errorf("creating interest config: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	c.logger.InfoContext(ctx, "member created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// CreateParent provisions a parent with a vault account. Vaults are never
// balance checked; the seeded balance only keeps reports readable.
func (c *ConfigService) CreateParent(ctx context.Context, username, displayName, avatarColor string) (core.User, error) {
	user := core.User{
		Username:    strings.TrimSpace(username),
		DisplayName: strings.TrimSpace(displayName),
		Role:        core.RoleParent,
		AvatarColor: avatarColor,
		CreatedAt:   time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	err := c.store.WithinTx(ctx, func(s Store) error {
		created, err := s.CreateUser(ctx, user)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		user = created

		_, err = s.CreateAccount(ctx, core.Account{
			OwnerID:   user.ID,
			Type:      core.AccountVault,
			Nickname:  "Family Vault",
			IsDefault: true,
			Balance:   core.Money{Cents: 99999999900},
			CreatedAt: user.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("creating vault account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	c.logger.InfoContext(ctx, "parent created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// CreateCheckingAccount opens an extra checking account for a member. The
// nickname must be unique among the owner's checking accounts, and the
// per-member account limit applies.
func (c *ConfigService) CreateCheckingAccount(ctx context.Context, ownerID int64, nickname string) (core.Account, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return core.Account{}, errors.New("nickname is required")
	}

	taken, err := c.store.NicknameInUse(ctx, ownerID, core.AccountChecking, nickname, 0)
	if err != nil {
		return core.Account{}, fmt.Errorf("checking nickname availability: %w", err)
	}
	if taken {
		return core.Account{}, core.ErrNicknameTaken
	}

	count, err := c.store.CountAccounts(ctx, ownerID, core.AccountChecking)
	if err != nil {
		return core.Account{}, fmt.Errorf("counting checking accounts: %w", err)
	}
	max := c.intSetting(ctx, SettingMaxCheckingPerKid, defaultMaxCheckingAccounts)
	if count >= max {
		return core.Account{}, fmt.Errorf("checking account limit reached (%d)", max)
	}

	account, err := c.store.CreateAccount(ctx, core.Account{
		OwnerID:   ownerID,
		Type:      core.AccountChecking,
		Nickname:  nickname,
		IsDefault: count == 0,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("creating checking account: %w", err)
	}

	c.logger.InfoContext(ctx, "checking account created",
		"account_id", account.ID,
		"owner_id", ownerID,
		"nickname", nickname)
	return account, nil
}

// RenameAccount changes an account's nickname, keeping nicknames unique
// within the owner's accounts of the same type.
func (c *ConfigService) RenameAccount(ctx context.Context, accountID int64, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return errors.New("nickname is required")
	}

	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	taken, err := c.store.NicknameInUse(ctx, account.OwnerID, account.Type, nickname, accountID)
	if err != nil {
		return fmt.Errorf("checking nickname availability: %w", err)
	}
	if taken {
		return core.ErrNicknameTaken
	}
	return c.store.RenameAccount(ctx, accountID, nickname)
}

// SetDefaultAccount marks one account as the owner's default for its
// type. The previous default of the same type is cleared by the store.
func (c *ConfigService) SetDefaultAccount(ctx context.Context, accountID int64) error {
	if _, err := c.store.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return c.store.SetDefaultAccount(ctx, accountID)
}

// UpdateAllowance replaces a member's allowance schedule parameters. The
// next due date is recomputed from today when the schedule changes.
func (c *ConfigService) UpdateAllowance(ctx context.Context, cfg core.AllowanceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	current, err := c.store.AllowanceConfigByID(ctx, cfg.ID)
	if err != nil {
		return err
	}

	scheduleChanged := current.Frequency != cfg.Frequency ||
		!intPtrEqual(current.DayOfWeek, cfg.DayOfWeek) ||
		!intPtrEqual(current.DayOfMonth, cfg.DayOfMonth)
	if scheduleChanged {
		cfg.NextDueDate = core.NextDueDate(core.DateOf(time.Now().UTC()), cfg.Frequency, cfg.DayOfWeek, cfg.DayOfMonth)
	} else {
		cfg.NextDueDate = current.NextDueDate
	}
	cfg.UserID = current.UserID
	cfg.CreatedAt = current.CreatedAt

	if err := c.store.UpdateAllowanceConfig(ctx, cfg); err != nil {
		return fmt.Errorf("updating allowance config %d: %w", cfg.ID, err)
	}
	c.logger.InfoContext(ctx, "allowance updated",
		"config_id", cfg.ID,
		"amount", cfg.Amount.String(),
		"frequency", string(cfg.Frequency),
		"active", cfg.Active)
	return nil
}

// UpdateAllowanceSplits replaces the split shares of an allowance config.
// Every target account must belong to the config's member and be a
// checking or savings account, and the percentages must sum to 100.
func (c *ConfigService) UpdateAllowanceSplits(ctx context.Context, configID int64, splits []core.AllowanceSplit) error {
	cfg, err := c.store.AllowanceConfigByID(ctx, configID)
	if err != nil {
		return err
	}

	shares := make([]core.SplitShare, 0, len(splits))
	for _, split := range splits {
		account, err := c.store.GetAccount(ctx, split.AccountID)
		if err != nil {
			return fmt.Errorf("loading split account %d: %w", split.AccountID, err)
		}
		if account.OwnerID != cfg.UserID {
			return fmt.Errorf("%w: account %d does not belong to user %d",
				core.ErrInvalidSplitConfiguration, split.AccountID, cfg.UserID)
		}
		if account.IsVault() {
			return fmt.Errorf("%w: account %d is a vault", core.ErrInvalidSplitConfiguration, split.AccountID)
		}
		shares = append(shares, core.SplitShare{AccountID: split.AccountID, Percentage: split.Percentage})
	}
	if err := core.ValidateSplits(shares); err != nil {
		return err
	}

	if err := c.store.ReplaceSplits(ctx, configID, splits); err != nil {
		return fmt.Errorf("replacing splits for config %d: %w", configID, err)
	}
	c.logger.InfoContext(ctx, "allowance splits updated", "config_id", configID, "splits", len(splits))
	return nil
}

// UpdateInterest replaces an account's interest schedule parameters.
func (c *ConfigService) UpdateInterest(ctx context.Context, cfg core.InterestConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	current, err := c.store.InterestConfigByID(ctx, cfg.ID)
	if err != nil {
		return err
	}
	cfg.AccountID = current.AccountID
	cfg.LastApplied = current.LastApplied
	cfg.CreatedAt = current.CreatedAt

	if err := c.store.UpdateInterestConfig(ctx, cfg); err != nil {
		return fmt.Errorf("updating interest config %d: %w", cfg.ID, err)
	}
	c.logger.InfoContext(ctx, "interest updated",
		"config_id", cfg.ID,
		"annual_rate", cfg.AnnualRate,
		"frequency", string(cfg.Frequency),
		"active", cfg.Active)
	return nil
}

// Setting returns one bank setting value.
func (c *ConfigService) Setting(ctx context.Context, key string) (string, error) {
	return c.store.Setting(ctx, key)
}

// SetSetting stores one bank setting value.
func (c *ConfigService) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key is required")
	}
	if err := c.store.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	c.logger.InfoContext(ctx, "setting updated", "key", key)
	return nil
}

func (c *ConfigService) intSetting(ctx context.Context, key string, fallback int) int {
	raw, err := c.store.Setting(ctx, key)
	if err != nil {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// nextMonday returns the first Monday strictly after the given day.
func nextMonday(now time.Time) time.Time {
	today := core.DateOf(now)
	ahead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
