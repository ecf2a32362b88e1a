package prompt

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yourorg/reviewgen/internal/stores"
	"github.com/yourorg/reviewgen/pkg/types"
)

// englishFacts are the request fields rendered for the English templates.
type englishFacts struct {
	gender    string
	visit     string
	companion string
	keywords  []string
	contexts  string
	staff     string
	hasStaff  bool
}

func englishFactsFor(store stores.Store, req types.GenerationRequest) englishFacts {
	f := englishFacts{
		gender:    "male",
		visit:     "local",
		companion: "friends",
		staff:     "the staff",
		hasStaff:  req.HasStaff(),
	}
	if req.Gender == types.GenderFemale {
		f.gender = "female"
	}
	if req.VisitType == types.VisitTourist {
		f.visit = "tourist"
	}
	if en := englishLabel(store.Features.Companion, req.Companion); en != "" {
		f.companion = strings.ToLower(en)
	}
	if f.hasStaff {
		f.staff = strings.TrimSpace(req.StaffName)
	}

	var contexts []string
	for _, kw := range req.Keywords {
		label := englishLabel(store.Features.Keywords, kw)
		if label == "" {
			label = kw
		}
		f.keywords = append(f.keywords, label)
		if c := store.KeywordContextsEN[kw]; c != "" {
			contexts = append(contexts, c)
		}
	}
	f.contexts = strings.Join(contexts, ". ")
	return f
}

// englishLabel returns the English label index-aligned with a canonical option.
func englishLabel(f stores.OptionFeature, canonical string) string {
	i := slices.Index(f.Options.JA, canonical)
	if i < 0 || i >= len(f.Options.EN) {
		return ""
	}
	return f.Options.EN[i]
}

// english renders the fixed English template. It ignores the randomized style params.
func (a *Assembler) english(store stores.Store, req types.GenerationRequest) Prompt {
	f := englishFactsFor(store, req)
	if store.Template == stores.TemplateTour {
		return englishTour(store, req, f)
	}
	return englishBar(store, req, f)
}

func englishBar(store stores.Store, req types.GenerationRequest, f englishFacts) Prompt {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("You're a %s customer in your 20s-30s who visited %s in Koza, Okinawa. You're writing a Google Maps review with a fun, slightly tipsy vibe.", f.gender, store.Name)
	line("")
	line("【CRITICAL】Write the ENTIRE review in ENGLISH ONLY. Do NOT use any Japanese words or characters!")
	line("")
	line("【Your Experience】")
	line("- Rating: %d stars", req.Rating)
	if f.visit == "local" {
		line("- Visit type: local (You live in Okinawa)")
	} else {
		line("- Visit type: tourist (You're visiting Okinawa for travel)")
	}
	line("- Came with: %s", f.companion)
	line("- What you enjoyed: %s", strings.Join(f.keywords, ", "))
	if f.hasStaff {
		line("- Favorite staff: %s", f.staff)
	}
	line("")
	line("【Key Points to Emphasize】")
	line("%s", f.contexts)
	line("")
	line("【STRICT RULES】")
	line("1. **Write a COMPLETE review that ends properly** (Never cut off mid-sentence!!!)")
	line("2. **Length: 100-130 characters** (Short but complete with a closing statement)")
	line(`3. **Casual, fun tone** (like "dude", "literally", "so good", "amazing")`)
	line("4. **NO formal AI language** - Sound like a real excited customer")
	line(`5. **Past tense** (describe what happened: "went", "had", "was")`)
	line("6. **Use 2-3 emojis naturally** 🎯🍺😂✨")
	line(`7. **End with a positive closing** ("Definitely coming back!" "Highly recommend!")`)
	if f.hasStaff {
		line(`8. **Mention %s like a fan** ("%s was hilarious", "Can't wait to see %s again")`, f.staff, f.staff, f.staff)
	}
	line("")

	var examples []string
	if f.companion == "friends" && slices.Contains(req.Keywords, "ダーツ・ビリヤード無料") {
		shout := "Staff was awesome!"
		if f.hasStaff {
			shout = f.staff + " made it even better!"
		}
		examples = append(examples, fmt.Sprintf(`"Went with friends after hitting other bars in Koza - darts and pool are FREE!? Stayed till morning 😂 %s Best value ever 🎯 Definitely coming back!"`, shout))
	}
	if f.companion == "solo" && slices.Contains(req.Keywords, "スタッフ最高") {
		examples = append(examples, fmt.Sprintf(`"Stopped by solo after work and %s kept me entertained all night! Never felt alone 🍺 Free entry/exit system is clutch for bar hopping. See you again soon! ✨"`, f.staff))
	}
	if len(examples) > 0 {
		line("【Good Examples】")
		for _, e := range examples {
			line("%s", e)
		}
		line("")
	}

	line("Write ONE complete review following the rules above for a **%s %s visit**. NEVER cut off mid-sentence!!!", f.companion, f.visit)
	line("")
	line("【SUPER IMPORTANT】")
	line("1. Write ONLY in ENGLISH - no Japanese!")
	b.WriteString(`2. End with a complete sentence! Use closings like "Coming back!", "Highly recommend!", "See you soon!" etc.`)

	system := fmt.Sprintf("You're a customer in your 20s-30s who visited %s in Koza, Okinawa. Write a Google Maps review with a fun, friendly tone in ENGLISH ONLY.", store.Name)
	return Prompt{System: system, User: b.String(), Sampling: SamplingEN}
}

func englishTour(store stores.Store, req types.GenerationRequest, f englishFacts) Prompt {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("You're a %s traveler who just joined the %s marine activity tour in Cebu. You're writing a Google Maps review while the excitement is still fresh.", f.gender, store.Name)
	line("")
	line("【CRITICAL】Write the ENTIRE review in ENGLISH ONLY. Do NOT use any Japanese words or characters!")
	line("")
	line("【About the Tour】")
	line("%s", store.PromptContext.EN)
	line("")
	line("【Your Experience】")
	line("- Rating: %d stars", req.Rating)
	line("- Came with: %s", f.companion)
	line("- What you enjoyed: %s", strings.Join(f.keywords, ", "))
	line("")
	line("【Key Points to Emphasize】")
	line("%s", f.contexts)
	line("")
	line("【STRICT RULES】")
	line("1. **Write a COMPLETE review that ends properly** (Never cut off mid-sentence!!!)")
	line("2. **Length: 100-130 characters** (Short but complete with a closing statement)")
	line(`3. **Casual, excited tone** (like "literally", "so good", "unreal")`)
	line("4. **NO formal AI language** - Sound like a real happy traveler")
	line(`5. **Past tense** (describe what happened: "joined", "saw", "was")`)
	line("6. **Use 2-3 emojis naturally** 🌊🚤✨📸")
	line(`7. **End with a positive closing** ("Must-do in Cebu!" "Highly recommend!")`)
	line("8. **Do NOT mention any staff member by name**")
	line("")

	if f.companion == "family" && slices.Contains(req.Keywords, "安心・安全") {
		line("【Good Examples】")
		line(`"Did the half-day tour with my family and felt safe the whole time 🌊 The staff even took tons of photos 📸 Still had the afternoon free for shopping. Must-do in Cebu! ✨"`)
		line("")
	}

	line("Write ONE complete review following the rules above for a **%s tour**. NEVER cut off mid-sentence!!!", f.companion)
	line("")
	line("【SUPER IMPORTANT】")
	line("1. Write ONLY in ENGLISH - no Japanese!")
	b.WriteString(`2. End with a complete sentence! Use closings like "Must-do in Cebu!", "Highly recommend!", "Would go again!" etc.`)

	system := fmt.Sprintf("You're a traveler who joined the %s marine tour in Cebu. Write a Google Maps review with a fun, friendly tone in ENGLISH ONLY.", store.Name)
	return Prompt{System: system, User: b.String(), Sampling: SamplingEN}
}
