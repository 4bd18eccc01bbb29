package match

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// ErrIncompleteSelection is returned when player one has not chosen both a
// class and a weapon.
var ErrIncompleteSelection = errors.New("player one must choose a class and a weapon")

// Loadout names the class and weapon a fighter enters with.
type Loadout struct {
	ClassID  string `json:"class"`
	WeaponID string `json:"weapon"`
}

// Selection is the pre-match choice for both slots. Empty P2 fields are
// chosen at random.
type Selection struct {
	P1 Loadout
	P2 Loadout
}

// Fighter is a resolved loadout.
type Fighter struct {
	Loadout
	Class  *ruleset.ClassDef
	Weapon *ruleset.WeaponDef
}

// Resolve fills the random parts of sel from src's catalogue and fetches
// all four definitions concurrently.
//
// Precondition: src and rnd must not be nil.
// Postcondition: on success both fighters carry non-nil definitions whose
// IDs match their loadout.
func Resolve(ctx context.Context, src ruleset.Source, sel Selection, rnd dice.Source) ([2]Fighter, error) {
	var out [2]Fighter
	if sel.P1.ClassID == "" || sel.P1.WeaponID == "" {
		return out, ErrIncompleteSelection
	}
	p2, err := randomise(ctx, src, sel.P2, rnd)
	if err != nil {
		return out, err
	}
	out[0].Loadout = sel.P1
	out[1].Loadout = p2

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		f := &out[i]
		g.Go(func() error {
			def, err := src.Class(gctx, f.ClassID)
			if err != nil {
				return fmt.Errorf("resolving player %d class: %w", i+1, err)
			}
			f.Class = def
			return nil
		})
		g.Go(func() error {
			def, err := src.Weapon(gctx, f.WeaponID)
			if err != nil {
				return fmt.Errorf("resolving player %d weapon: %w", i+1, err)
			}
			f.Weapon = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return [2]Fighter{}, err
	}
	return out, nil
}

func randomise(ctx context.Context, src ruleset.Source, l Loadout, rnd dice.Source) (Loadout, error) {
	if l.ClassID != "" && l.WeaponID != "" {
		return l, nil
	}
	var classIDs, weaponIDs []string
	g, gctx := errgroup.WithContext(ctx)
	if l.ClassID == "" {
		g.Go(func() (err error) {
			classIDs, err = src.ClassIDs(gctx)
			return err
		})
	}
	if l.WeaponID == "" {
		g.Go(func() (err error) {
			weaponIDs, err = src.WeaponIDs(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Loadout{}, fmt.Errorf("listing definitions: %w", err)
	}
	if l.ClassID == "" {
		if len(classIDs) == 0 {
			return Loadout{}, fmt.Errorf("choosing a random class: %w", ruleset.ErrNotFound)
		}
		l.ClassID = dice.Pick(rnd, classIDs)
	}
	if l.WeaponID == "" {
		if len(weaponIDs) == 0 {
			return Loadout{}, fmt.Errorf("choosing a random weapon: %w", ruleset.ErrNotFound)
		}
		l.WeaponID = dice.Pick(rnd, weaponIDs)
	}
	return l, nil
}
