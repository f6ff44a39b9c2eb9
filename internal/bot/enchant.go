package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

type enchantment struct {
	id    string
	level int
}

var (
	allProtection = []enchantment{
		{"protection", 4}, {"fire_protection", 4}, {"blast_protection", 4}, {"projectile_protection", 4},
	}
	durable = []enchantment{{"unbreaking", 3}, {"mending", 1}}
)

func joinEnchants(sets ...[]enchantment) []enchantment {
	var out []enchantment
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// enchantTable: первое совпавшее по подстроке имени. pickaxe раньше axe.
var enchantTable = []struct {
	kind string
	list []enchantment
}{
	{"sword", joinEnchants([]enchantment{
		{"sharpness", 5}, {"sweeping", 3}, {"looting", 3}, {"fire_aspect", 2}, {"knockback", 2},
	}, durable)},
	{"helmet", joinEnchants(allProtection, []enchantment{{"respiration", 3}, {"aqua_affinity", 1}}, durable)},
	{"chestplate", joinEnchants(allProtection, durable)},
	{"leggings", joinEnchants(allProtection, durable)},
	{"boots", joinEnchants(allProtection, []enchantment{{"feather_falling", 4}, {"depth_strider", 3}}, durable)},
	{"bow", joinEnchants([]enchantment{{"power", 5}, {"punch", 2}, {"flame", 1}, {"infinity", 1}}, durable)},
	{"trident", joinEnchants([]enchantment{{"impaling", 5}, {"loyalty", 3}, {"channeling", 1}}, durable)},
	{"pickaxe", joinEnchants([]enchantment{{"efficiency", 5}, {"fortune", 3}}, durable)},
	{"axe", joinEnchants([]enchantment{{"efficiency", 5}, {"sharpness", 5}}, durable)},
	{"shovel", joinEnchants([]enchantment{{"efficiency", 5}}, durable)},
	{"elytra", durable},
}

var errUnknownTool = errors.New("unknown tool")

func enchantmentsFor(tool string) ([]enchantment, error) {
	for _, e := range enchantTable {
		if strings.Contains(tool, e.kind) {
			return e.list, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", tool, errUnknownTool)
}

func (b *Bot) cmdEnchant(c cmdCtx) error {
	if len(c.args) == 0 {
		b.say("🤔 Cậu muốn tớ enchant công cụ gì? VD: en diamond_sword")
		return nil
	}
	query := blockQuery(strings.Join(c.args, " "))
	b.chore("enchant", func(ctx context.Context) error { return b.Enchant(ctx, query) })
	return nil
}

// Enchant берёт предмет из инвентаря в руку и накладывает на него весь набор
// чар для его типа через /enchant. Нужны права оператора.
func (b *Bot) Enchant(ctx context.Context, query string) error {
	if b.buff.get() == PermDenied {
		b.say("🥺 Tớ không có quyền OP để enchant!")
		return nil
	}
	flat := strings.ReplaceAll(query, "_", "")
	tool, ok := game.FindItem(b.w.Inventory(), func(it game.Item) bool {
		return strings.Contains(it.Name, query) || strings.ReplaceAll(it.Name, "_", "") == flat
	})
	if !ok {
		b.say(fmt.Sprintf("🥺 Không có %s trong túi để enchant!", query))
		return nil
	}
	list, err := enchantmentsFor(tool.Name)
	if err != nil {
		b.say(fmt.Sprintf("🤔 Không biết cách enchant %s", tool.Name))
		return nil
	}
	if err := b.w.Equip(tool, game.SlotHand); err != nil {
		return err
	}
	b.say(fmt.Sprintf("⚔️ Đã cầm %s, bắt đầu enchant!", tool.Name))

	self := b.w.Username()
	pause := b.config().Modes.EnchantPause
	for _, e := range list {
		b.say(fmt.Sprintf("/enchant %s minecraft:%s %d", self, e.id, e.level))
		if err := game.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	b.log.Info("enchanted", zap.String("item", tool.Name), zap.Int("enchantments", len(list)))
	b.say(fmt.Sprintf("✨ Hoàn tất enchant %s! Nè", tool.Name))
	return nil
}
