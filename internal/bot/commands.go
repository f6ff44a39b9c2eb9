package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/gertd/go-pluralize"
	"go.uber.org/zap"

	"github.com/EgorLis/botlolicute/internal/game"
)

var (
	errNoConfig    = errors.New("config not enabled")
	errNoResponder = errors.New("ai is not configured")
)

var plural = pluralize.NewClient()

// ответы ИИ ждём не дольше
const replyTimeout = 20 * time.Second

type cmdCtx struct {
	sender string
	args   []string
}

type command struct {
	aliases []string
	usage   string
	run     func(b *Bot, c cmdCtx) error
}

var commands []command

func init() {
	commands = []command{
		{[]string{"stop", "dừng"}, "stop", (*Bot).cmdStop},
		{[]string{"follow", "theo"}, "follow [player]", (*Bot).cmdFollow},
		{[]string{"protect", "bảo vệ"}, "protect [player]", (*Bot).cmdProtect},
		{[]string{"crop farm", "auto farmer"}, "crop farm", (*Bot).cmdCropFarm},
		{[]string{"farm", "auto farm"}, "farm", (*Bot).cmdFarm},
		{[]string{"fish", "fishing", "auto câu"}, "fish", (*Bot).cmdFish},
		{[]string{"mine", "auto mine", "auto đào"}, "mine <ore>", (*Bot).cmdMine},
		{[]string{"chest", "auto chest", "auto tìm rương"}, "chest", (*Bot).cmdChest},
		{[]string{"explore", "auto explore", "tự khám phá"}, "explore", (*Bot).cmdExplore},
		{[]string{"build", "auto xây"}, "build <house|tower|bridge|kind WxLxH> [clear]", (*Bot).cmdBuild},
		{[]string{"pvp"}, "pvp <player>", (*Bot).cmdPVP},
		{[]string{"pvppro", "/pvppro"}, "pvppro <player>", (*Bot).cmdPVPPro},
		{[]string{"sleep", "ngủ"}, "sleep", (*Bot).cmdSleep},
		{[]string{"give", "cần"}, "give <item> [count]", (*Bot).cmdGive},
		{[]string{"store", "cất đồ"}, "store", (*Bot).cmdStore},
		{[]string{"say", "hãy nói"}, "say <text>", (*Bot).cmdSay},
		{[]string{"list players", "danh sách players"}, "list players", (*Bot).cmdListPlayers},
		{[]string{"status", "trạng thái"}, "status", (*Bot).cmdStatus},
		{[]string{"spam attack", "tấn công spam"}, "spam attack", (*Bot).cmdSpamAttack},
		{[]string{"ask", "tớ hỏi nè"}, "ask <question>", (*Bot).cmdAsk},
		{[]string{"ai"}, "ai <request>", (*Bot).cmdAgent},
		{[]string{"en", "enchant"}, "en <tool>", (*Bot).cmdEnchant},
		{[]string{"help", "giúp"}, "help", (*Bot).cmdHelp},
	}
	aliasIndex = buildAliasIndex()
}

type aliasRef struct {
	words []string
	cmd   *command
}

// алиасы, отсортированные от длинных к коротким: "crop farm" раньше "farm"
var aliasIndex []aliasRef

func buildAliasIndex() []aliasRef {
	var out []aliasRef
	for i := range commands {
		for _, a := range commands[i].aliases {
			out = append(out, aliasRef{words: strings.Fields(a), cmd: &commands[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].words) > len(out[j].words) })
	return out
}

// отправители, чьи сообщения не команды
func ignoredSender(sender, self string) bool {
	if sender == "" || sender == self {
		return true
	}
	switch strings.ToLower(sender) {
	case "server", "console", "shop":
		return true
	}
	return strings.HasPrefix(sender, "[") ||
		strings.Contains(sender, "Plugin") ||
		strings.Contains(sender, "System") ||
		strings.Contains(sender, "Admin")
}

// спам плагинов
func pluginNoise(text string) bool {
	for _, s := range []string{"plugin", "update available", "download at:", "spigotmc.org"} {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func (b *Bot) handleChat(sender, text string) {
	if ignoredSender(sender, b.w.Username()) || pluginNoise(text) {
		return
	}
	b.log.Debug("chat", zap.String("sender", sender), zap.String("text", text))
	if err := b.HandleCommand(sender, text); err != nil {
		b.say("err: " + err.Error())
	}
}

// HandleCommand выполняет команду от имени sender; свободный текст уходит ИИ.
func (b *Bot) HandleCommand(sender, text string) error {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return nil
	}
	cmd, rest := matchCommand(fields)
	if cmd == nil {
		b.chatWithAI(sender, text)
		return nil
	}
	args, err := shellwords.SplitPosix(rest)
	if err != nil {
		return fmt.Errorf("bad arguments: %w", err)
	}
	b.touch()
	b.log.Info("command", zap.String("sender", sender), zap.String("command", cmd.aliases[0]), zap.Strings("args", args))
	return cmd.run(b, cmdCtx{sender: sender, args: args})
}

// matchCommand ищет самый длинный алиас в начале сообщения (без учёта регистра).
func matchCommand(fields []string) (*command, string) {
	for _, a := range aliasIndex {
		if len(fields) < len(a.words) {
			continue
		}
		ok := true
		for i, w := range a.words {
			if strings.ToLower(fields[i]) != w {
				ok = false
				break
			}
		}
		if ok {
			return a.cmd, strings.Join(fields[len(a.words):], " ")
		}
	}
	return nil, ""
}

// targetOrSender — игрок из аргументов; без аргумента, «me» или «tớ» — отправитель.
func (b *Bot) targetOrSender(c cmdCtx) (string, error) {
	name := c.sender
	if len(c.args) > 0 {
		switch a := strings.ToLower(c.args[0]); a {
		case "me", "tớ", "mình":
		default:
			name = c.args[0]
		}
	}
	p, ok := b.resolvePlayer(name)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, errPlayerNotFound)
	}
	return p, nil
}

func (b *Bot) cmdStop(cmdCtx) error {
	b.StopAll(false)
	return nil
}

func (b *Bot) cmdFollow(c cmdCtx) error {
	p, err := b.targetOrSender(c)
	if err != nil {
		return err
	}
	if err := b.StartMode(b.Follow(p)); err != nil {
		return err
	}
	b.say(fmt.Sprintf("👣 Đang theo %s!", p))
	return nil
}

func (b *Bot) cmdProtect(c cmdCtx) error {
	p, err := b.targetOrSender(c)
	if err != nil {
		return err
	}
	if err := b.StartMode(b.Protect(p)); err != nil {
		return err
	}
	b.say(fmt.Sprintf("🛡️ Tớ sẽ bảo vệ %s!", p))
	return nil
}

func (b *Bot) cmdFarm(cmdCtx) error {
	if err := b.StartMode(b.Farm()); err != nil {
		return err
	}
	b.say("⚔️ Bắt đầu auto farm quái!")
	return nil
}

func (b *Bot) cmdCropFarm(cmdCtx) error { return b.StartMode(b.CropFarm()) }

func (b *Bot) cmdFish(cmdCtx) error { return b.StartMode(b.Fish()) }

func (b *Bot) cmdMine(c cmdCtx) error {
	if len(c.args) == 0 {
		return errors.New("usage: mine <diamond|iron|gold|coal|copper|emerald|redstone|lapis|netherite>")
	}
	return b.StartMode(b.Mine(strings.ToLower(c.args[0])))
}

func (b *Bot) cmdChest(cmdCtx) error { return b.StartMode(b.ChestHunt()) }

func (b *Bot) cmdExplore(cmdCtx) error { return b.StartMode(b.Explore()) }

func (b *Bot) cmdBuild(c cmdCtx) error {
	var (
		wipe bool
		args []string
	)
	for _, a := range c.args {
		switch strings.ToLower(a) {
		case "clear", "phẳng":
			wipe = true
		default:
			args = append(args, a)
		}
	}
	if len(args) == 0 {
		args = []string{"house"}
	}
	bp, err := LookupBlueprint(args[0], args[1:]...)
	if err != nil {
		return err
	}
	return b.StartMode(b.Build(bp, wipe))
}

func (b *Bot) cmdPVP(c cmdCtx) error {
	if len(c.args) == 0 {
		return errors.New("usage: pvp <player>")
	}
	return b.StartMode(b.PVP(strings.Join(c.args, " "), false))
}

func (b *Bot) cmdPVPPro(c cmdCtx) error {
	if len(c.args) == 0 {
		return errors.New("usage: pvppro <player>")
	}
	return b.StartMode(b.PVP(strings.Join(c.args, " "), true))
}

// разовые дела идут в фоне, чтобы не держать очередь чата
func (b *Bot) chore(name string, fn func(ctx context.Context) error) {
	b.goTask(func(ctx context.Context) {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			b.log.Info("chore failed", zap.String("chore", name), zap.Error(err))
			b.say("err: " + err.Error())
		}
	})
}

func (b *Bot) cmdSleep(cmdCtx) error {
	b.chore("sleep", b.Sleep)
	return nil
}

func (b *Bot) cmdGive(c cmdCtx) error {
	count := 64
	var words []string
	for _, a := range c.args {
		if n, err := strconv.Atoi(a); err == nil && n > 0 {
			count = n
			continue
		}
		words = append(words, a)
	}
	if len(words) == 0 {
		return errors.New("usage: give <item> [count]")
	}
	item := game.TrimNamespace(strings.ToLower(strings.Join(words, "_")))
	b.chore("give", func(ctx context.Context) error {
		n, err := b.Give(ctx, c.sender, item, count)
		if err != nil {
			return err
		}
		b.say(fmt.Sprintf("🎁 Đưa %s cho %s!", plural.Pluralize(strings.ReplaceAll(item, "_", " "), n, true), c.sender))
		return nil
	})
	return nil
}

func (b *Bot) cmdStore(cmdCtx) error {
	b.chore("store", func(ctx context.Context) error {
		n, err := b.Store(ctx)
		if err != nil {
			return err
		}
		b.say(fmt.Sprintf("📦 Đã cất %s vào rương!", plural.Pluralize("stack", n, true)))
		return nil
	})
	return nil
}

func (b *Bot) cmdSay(c cmdCtx) error {
	if len(c.args) == 0 {
		return errors.New("usage: say <text>")
	}
	b.say(strings.Join(c.args, " "))
	return nil
}

func (b *Bot) cmdListPlayers(cmdCtx) error {
	var others []string
	for _, p := range b.w.Players() {
		if p != b.w.Username() {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		b.say("📋 Không có player nào trong server (ngoài tớ)")
		return nil
	}
	b.say(fmt.Sprintf("📋 %s: [%s]", plural.Pluralize("player", len(others), true), strings.Join(others, ", ")))
	return nil
}

func (b *Bot) cmdStatus(cmdCtx) error {
	st := b.Status()
	pos := st.Position.Block()
	line := fmt.Sprintf("📊 %s | HP %.0f/20 | 🍗 %d/20 | (%d, %d, %d)", st.Mode, st.Health, st.Food, pos.X, pos.Y, pos.Z)
	if st.Target != "" {
		line += " | 🎯 " + st.Target
	}
	b.say(line)
	return nil
}

// cmdSpamAttack — 20 ударов по ближайшему мобу в радиусе 10.
func (b *Bot) cmdSpamAttack(cmdCtx) error {
	mob, ok := game.NearestEntity(b.w.Entities(), b.w.Position(), 10, func(e game.Entity) bool {
		return game.IsHostile(e) || game.IsFarmable(e)
	})
	if !ok {
		b.say("🤔 Không thấy mob nào để spam attack!")
		return nil
	}
	b.say("🔥 SPAM ATTACK MODE ON!")
	b.chore("spam attack", func(ctx context.Context) error {
		b.equipBestWeapon()
		if err := b.moveNear(ctx, mob.Position, 2, 3*time.Second); err != nil {
			return retryLater(err)
		}
		_ = b.w.LookAt(mob.Position.Offset(0, 1, 0))
		if err := b.swing(ctx, mob.ID, 20); err != nil {
			return err
		}
		b.say("⚔️ MEGA SPAM COMPLETE! 20x attacks delivered!")
		return nil
	})
	return nil
}

func (b *Bot) cmdAsk(c cmdCtx) error {
	if b.responder == nil {
		return errNoResponder
	}
	if len(c.args) == 0 {
		return errors.New("usage: ask <question>")
	}
	b.chatWithAI(c.sender, strings.Join(c.args, " "))
	return nil
}

// chatWithAI отвечает на свободный текст, если подключён ИИ.
func (b *Bot) chatWithAI(sender, text string) {
	if b.responder == nil {
		return
	}
	b.goTask(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, replyTimeout)
		defer cancel()
		reply, err := b.responder.Reply(ctx, sender, text)
		if err != nil {
			b.log.Debug("ai reply failed", zap.String("sender", sender), zap.Error(err))
			return
		}
		if reply != "" {
			b.say(reply)
		}
	})
}

func (b *Bot) cmdHelp(cmdCtx) error {
	var usages []string
	for _, c := range commands {
		usages = append(usages, c.usage)
	}
	// чат режет длинные строки: шлём частями
	const perLine = 7
	for i := 0; i < len(usages); i += perLine {
		b.say(strings.Join(usages[i:min(i+perLine, len(usages))], " | "))
	}
	return nil
}
