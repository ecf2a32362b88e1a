package prompt

import (
	"fmt"
	"strings"

	"github.com/yourorg/reviewgen/internal/params"
	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

const systemJA = "あなたは普通の人間です。Googleマップに短い口コミを書いています。決まった型や構造はありません。自分らしく、自由に書いてください。"

var styleDescriptions = map[string]string{
	params.StyleSimple:     "短く簡潔に。〜だった、〜できた、で終わる",
	params.StyleSatisfied:  "満足感を表現。〜で良かった、〜も楽しめた",
	params.StyleEvaluative: "評価を明確に。〜が印象的、〜なのも良い",
	params.StyleRecommend:  "推奨スタイル。〜行った、〜だった、おすすめ",
	params.StyleNarrative:  "エピソード重視。具体的な体験を描写",
}

var commaDescriptions = map[string]string{
	params.CommaMinimal:  "ほとんど使わない",
	params.CommaStandard: "文法通りに使う",
	params.CommaChaotic:  "不規則な位置に打つ",
	params.CommaNone:     "一切使わない",
}

const closingsJA = "毎回違う締めで。例: 一文で終わる、また来たい、おすすめ、感想だけ、比較（他店より）、一言（良かった）など。型にハマらない。"

const ngWordsJA = "最高、素敵、また行く、楽しい時間、過ごした、ゆっくり、印象的 → 使うなら1回まで。ゆっくり→落ち着いて/のんびり、印象的→覚えてる/良かった、など言い換え可。"

// profile holds the per-template framing of the Japanese prompt.
type profile struct {
	location string
	activity string
	mood     string
	emoji    string
}

func japaneseProfile(store stores.Store, local bool) profile {
	if store.Template == stores.TemplateTour {
		return profile{
			location: "セブ島旅行中",
			activity: "マリンアクティビティ",
			mood:     "ハイテンション、楽しかった、感謝の気持ち",
			emoji:    "🌊🚤✨📸",
		}
	}
	loc := "旅行で沖縄訪問中"
	if local {
		loc = "沖縄在住"
	}
	return profile{location: loc, activity: "飲み", mood: "楽しかった"}
}

func placementInstruction(pos, name string) string {
	switch pos {
	case params.PlaceBeginning:
		return fmt.Sprintf("冒頭で「%s」という店名を自然に入れる", name)
	case params.PlaceMiddle:
		return fmt.Sprintf("文の途中で「%s」を自然に言及する", name)
	case params.PlaceEnd:
		return fmt.Sprintf("締めの部分で「%s」を入れる", name)
	default:
		return "店名は入れなくても良い（自然な流れ優先）"
	}
}

func (a *Assembler) japanese(store stores.Store, req types.GenerationRequest, p params.Params) Prompt {
	tour := store.Template == stores.TemplateTour
	female := req.Gender == types.GenderFemale
	local := req.VisitType == types.VisitLocal
	prof := japaneseProfile(store, local)
	companion := req.Companion

	timeCtx := ""
	if p.IncludeTime {
		timeCtx = p.TimeContext
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	persona := "20代後半の男性"
	if female {
		persona = "20代後半の女性"
	}
	line("あなたは%s。%s。Googleマップに口コミを書いています。", persona, prof.location)
	line("")

	line("【訪問内容】")
	line("%s%sと%sに行きました。", timeCtx, companion, prof.activity)
	line("")
	line("良かった点:")
	for _, t := range a.Rephrase(store, req.Keywords) {
		line("・%s", t)
	}
	if tour {
		line("・日本人スタッフの気配り")
	} else if a.mentionStaff(req, p) {
		line("・%sさんの接客", strings.TrimSpace(req.StaffName))
	}
	line("")

	line("【書き方の特徴】")
	if female {
		hint := ""
		if prof.emoji != "" {
			hint = fmt.Sprintf("（%sなどがおすすめ）", prof.emoji)
		}
		line("感情を素直に表現。楽しかった気持ちを伝える。絵文字%d個程度使ってOK%s。", p.EmojiCount, hint)
	} else {
		emoji := "使わない"
		if p.EmojiCount > 0 {
			emoji = "1個まで"
		}
		line("事実を淡々と伝える。絵文字は%s。落ち着いた表現。", emoji)
	}
	if tour {
		line("テンション: %s（%d/5）", prof.mood, p.Tension)
	} else {
		line("テンション: %d/5", p.Tension)
	}
	line("")

	line("【文体（今回）】")
	line("%s", styleDescriptions[p.StylePattern])
	line("")

	line("【ルール】")
	line("・文字数: 約%d文字", p.Length)
	line("・店名の配置: %s", placementInstruction(p.StoreNamePosition, store.Name))
	line("・助詞を省略した口語も自然に（例: ダーツ無料で良い、海きれい）。目安は%d%%くらい", percent(p.ParticleOmission))
	line("・読点: %s", commaDescriptions[p.CommaStyle])
	line("・冒頭: 毎回違う書き出しで（%sと%sに、は使いすぎ。別の表現で）", companion, store.Name)
	line("・小さなエピソードを一つ（「〜%s」のような流れ）", p.NarrativePattern)
	if p.IncludeSpatial {
		line("・「%s」など店の場所の言葉を自然に入れる", p.SpatialWord)
	}
	if tour {
		line("・観光客として。楽しかった体験を。")
		line("・半日プランの効率性を強調（午後は買い物など他の予定も可能）")
		line("・安全性と楽しさの両立を言及")
		line("・日本人スタッフへの感謝も自然に")
		line("・スタッフの名前は出さない")
	} else {
		if local {
			line("・地元民として。知ってることに驚かない。")
		} else {
			line("・観光客として。")
		}
		if female {
			line("・感情語: 感情を込めて（全体の%d%%くらい）", percent(p.EmotionWordRatio))
			line("・強調表現（とても、すごく）: 使ってOK（%d%%くらいの文で）", percent(p.IntensifierFrequency))
		} else {
			line("・感情語: 控えめに（全体の%d%%くらい）", percent(p.EmotionWordRatio))
			line("・強調表現（とても、すごく）: あまり使わない（%d%%くらいの文まで）", percent(p.IntensifierFrequency))
		}
		if p.GratitudeLevel >= 0.6 {
			line("・感謝の気持ちも表現OK")
		} else if p.GratitudeLevel >= 0.35 {
			line("・感謝は一言だけ")
		}
	}
	line("")

	line("【冒頭のバリエーション例】")
	if tour {
		lead := "旅行中に"
		if p.IncludeTime {
			lead = p.TimeContext
		}
		line("・セブ島で%sとツアー参加", companion)
		line("・%s%sと体験", lead, companion)
		line("・%sと%sのツアーに", companion, store.Name)
		line("・セブ旅行の目玉として")
		line("・%sに誘われて参加", companion)
	} else {
		lead := "週末に"
		if p.IncludeTime {
			lead = p.TimeContext
		}
		line("・%s%sと飲んだ", lead, companion)
		line("・コザで%sと遊んだ", companion)
		line("・ハシゴ酒の締めに寄った")
		line("・久しぶりに%sと", companion)
		line("・仕事帰りに%sと", companion)
		line("・%s%s", companion, p.OpeningPattern)
		line("・地元の飲み屋を探して")
		line("（「%sに誘われて行った」は使うなら1回だけ。他を優先）", companion)
	}
	line("")

	line("【締めのバリエーション】")
	line("%s", closingsJA)
	line("")

	line("【禁止】")
	line("・同じ冒頭パターンを繰り返さない")
	line("・矛盾しない")
	if req.Rating == 5 {
		line("・星5なのでポジティブに（大袈裟すぎない）")
	} else {
		line("・星%dなので適度な評価に", req.Rating)
		line("・小さな不満を入れても良い")
	}
	line("")

	line("【NGワード（使いすぎ注意・別表現で）】")
	line("%s", ngWordsJA)
	line("")
	b.WriteString("自然で毎回違う構成の口コミを書いてください。")

	return Prompt{System: systemJA, User: b.String(), Sampling: SamplingJA}
}

func percent(f float64) int {
	return int(f*100 + 0.5)
}
