package stores

// Builtin returns the catalog compiled into the binary, defaulting to barvel-koza.
func Builtin() *Catalog {
	c, err := NewCatalog(BarvelKoza, barvelKoza(), cebuOcto())
	if err != nil {
		panic("stores: invalid builtin catalog: " + err.Error())
	}
	return c
}

func barvelKoza() Store {
	return Store{
		ID:            BarvelKoza,
		Name:          "BARVEL KOZA",
		NameEN:        "BARVEL KOZA",
		LogoPath:      "/barvel-logo.png",
		GoogleMapsURL: "https://local.google.com/place?placeid=ChIJGWb3_AwT5TQRjGx04c24hBk&utm_medium=noren&utm_source=gbp&utm_campaign=2026",
		PlaceID:       "ChIJGWb3_AwT5TQRjGx04c24hBk",
		Theme: Theme{
			PrimaryColor:   "#06b6d4",
			SecondaryColor: "#a855f7",
			LogoGlow:       "drop-shadow(0 0 20px rgba(255, 0, 0, 0.6)) drop-shadow(0 0 40px rgba(0, 255, 255, 0.4))",
		},
		Features: Features{
			Keywords: OptionFeature{Enabled: true, Options: Options{
				JA: []string{"ダーツ・ビリヤード無料", "時間無制限飲み放題", "出入り自由・ハシゴ酒", "スタッフ最高"},
				EN: []string{"Free Darts & Pool", "Unlimited Time All-You-Can-Drink", "Free Entry/Exit", "Amazing Staff"},
			}},
			Companion: OptionFeature{Enabled: true, Options: Options{
				JA: []string{"友達", "同僚", "恋人", "一人"},
				EN: []string{"Friends", "Coworkers", "Partner", "Solo"},
			}},
			Gender:    genderFeature(),
			VisitType: OptionFeature{Enabled: true, Options: Options{JA: []string{"地元", "観光"}, EN: []string{"Local", "Tourist"}}},
			StaffName: StaffFeature{Enabled: true, Placeholder: Localized{
				JA: "覚えてなかったらその人の特徴でもOK！例：メガネのお兄さん",
				EN: "Name or description! e.g., Guy with glasses",
			}},
			Rating: RatingFeature{Enabled: true, Default: 5},
		},
		PromptContext: Localized{
			JA: "沖縄県コザのバー「BARVEL KOZA」。ダーツ・ビリヤード・カラオケ無料、時間無制限飲み放題が特徴。20代〜30代の若者に人気。",
			EN: "BARVEL KOZA is a bar in Koza, Okinawa. Features free darts, pool, karaoke, and unlimited time all-you-can-drink. Popular with young adults in their 20s-30s.",
		},
		Template: TemplateBar,
		KeywordVariants: map[string][]string{
			"ダーツ・ビリヤード無料": {"ダーツとビリヤードが無料", "ダーツもビリヤードもタダ", "ゲームが遊び放題", "ダーツとビリヤードが0円", "無料でダーツとビリヤード", "ダーツやビリヤードで遊べる"},
			"時間無制限飲み放題":   {"時間制限なしの飲み放題", "飲み放題が時間無制限", "時間を気にせず飲める", "定額で朝まで飲める", "時間制限ない飲み放題"},
			"出入り自由・ハシゴ酒":  {"出入り自由", "リストバンドで出入りできる", "ハシゴ酒に便利", "自由に出入りできる", "出入り自由なシステム"},
			"スタッフ最高":      {"スタッフが良い", "スタッフが親切", "スタッフのノリが良い", "スタッフと話せて楽しい", "接客が良い"},
		},
		KeywordContextsEN: map[string]string{
			"ダーツ・ビリヤード無料": "Emphasize that darts, pool, and karaoke are ALL FREE and unlimited. Mention how incredible the value is",
			"時間無制限飲み放題":   "Highlight the UNLIMITED time all-you-can-drink system. No rush, stay until morning for a flat rate",
			"出入り自由・ハシゴ酒":  "Mention the wristband system that lets you leave and come back. Perfect for bar hopping in Koza",
			"スタッフ最高":      "Emphasize how fun and friendly the staff are. Great vibes, easy to talk to, never feel alone",
		},
	}
}

func cebuOcto() Store {
	return Store{
		ID:            CebuOcto,
		Name:          "CEBUOCTO",
		NameEN:        "CEBUOCTO (セブオクト)",
		LogoPath:      "/cebuocto-logo.png",
		GoogleMapsURL: "https://maps.app.goo.gl/zM4SC3s4k7rMazSbA",
		PlaceID:       "cebuocto",
		Theme: Theme{
			PrimaryColor:   "#0d9488",
			SecondaryColor: "#f59e0b",
			LogoGlow:       "drop-shadow(0 0 12px rgba(13, 148, 136, 0.4)) drop-shadow(0 0 24px rgba(245, 158, 11, 0.2))",
		},
		Features: Features{
			Keywords: OptionFeature{Enabled: true, Options: Options{
				JA: []string{
					"海がキレイ", "スタッフが親切", "写真・動画が最高", "安心・安全", "大興奮", "シュノーケル",
					"イルカに会えた", "ウミガメに会えた", "景色が絶景", "コスパ良い", "食事が美味しい", "一生の思い出",
				},
				EN: []string{
					"Beautiful sea", "Friendly staff", "Great photos/videos", "Safe & secure", "So exciting", "Snorkeling",
					"Saw dolphins", "Saw sea turtles", "Stunning views", "Great value", "Delicious food", "Memory of a lifetime",
				},
			}},
			Companion: OptionFeature{Enabled: true, Options: Options{
				JA: []string{"友達", "家族", "恋人", "一人"},
				EN: []string{"Friends", "Family", "Partner", "Solo"},
			}},
			Gender: genderFeature(),
			// Cebu customers are always travellers.
			VisitType: OptionFeature{Enabled: false, Options: Options{JA: []string{"観光"}, EN: []string{"Tourist"}}},
			StaffName: StaffFeature{Enabled: false},
			Rating:    RatingFeature{Enabled: true, Default: 5},
		},
		PromptContext: Localized{
			JA: "セブ島のマリンアクティビティツアー「CEBUOCTO（セブオクト）」。半日プランで効率的に、パラセーリング・アイランドホッピング・シュノーケルなどが楽しめる。海がキレイ、イルカやウミガメに会えることも。日本人スタッフが親切で写真・動画も撮ってくれ、安心・安全。",
			EN: "Marine activity tour in Cebu 'CEBUOCTO'. Half-day plan for time efficiency. Parasailing, island hopping, snorkeling. Crystal clear sea, dolphins and sea turtles. Japanese staff are friendly, take great photos/videos, and ensure safety.",
		},
		SinglePageLayout: true,
		Template:         TemplateTour,
		KeywordVariants: map[string][]string{
			"海がキレイ":    {"海が透き通っていてキレイ", "透明度が高い海", "エメラルドグリーンの海", "海が本当に綺麗"},
			"スタッフが親切":  {"スタッフが親切で安心", "日本人スタッフが丁寧", "スタッフの対応が良かった", "気さくで話しやすい"},
			"写真・動画が最高": {"写真をたくさん撮ってくれた", "動画も撮影してくれた", "思い出が残る写真", "プロっぽい写真"},
			"安心・安全":    {"安全管理がしっかり", "安心して楽しめた", "安全第一で案内", "丁寧な説明で安心"},
			"大興奮":      {"めちゃくちゃ楽しかった", "最高に盛り上がった", "テンション上がった", "一生忘れない体験"},
			"シュノーケル":   {"シュノーケリングが楽しかった", "海中が綺麗だった", "魚がたくさん見えた", "シュノーケルが気持ち良かった"},
			"イルカに会えた":  {"イルカに会えて感激", "野生のイルカが見れた", "イルカと泳げた", "イルカが近くに来た"},
			"ウミガメに会えた": {"ウミガメに会えた", "ウミガメと泳いだ", "ウミガメが目の前を", "亀に会えてラッキー"},
			"景色が絶景":    {"景色が絶景だった", "眺めが最高", "空と海が綺麗", "パノラマがすごい"},
			"コスパ良い":    {"コスパが良い", "料金の割に充実", "お得なプラン", "価格相応以上"},
			"食事が美味しい":  {"ランチが美味しかった", "ご飯も美味しい", "食事付きで満足", "地元の味が楽しめた"},
			"一生の思い出":   {"一生の思い出になった", "忘れられない体験", "また来たい", "家族にも勧めたい"},
		},
		KeywordContextsEN: map[string]string{
			"海がキレイ":    "Describe how crystal clear and blue the sea was",
			"スタッフが親切":  "Mention how kind and attentive the Japanese staff were",
			"写真・動画が最高": "Mention the staff took tons of great photos and videos for you",
			"安心・安全":    "Say you felt safe the whole time thanks to careful guidance",
			"大興奮":      "Show how thrilling the whole tour was",
			"シュノーケル":   "Talk about snorkeling and seeing lots of fish",
			"イルカに会えた":  "Mention spotting wild dolphins up close",
			"ウミガメに会えた": "Mention swimming next to sea turtles",
			"景色が絶景":    "Rave about the stunning views of sky and sea",
			"コスパ良い":    "Point out it was great value for the price",
			"食事が美味しい":  "Mention the lunch was delicious",
			"一生の思い出":   "Say it became a memory of a lifetime",
		},
	}
}

func genderFeature() OptionFeature {
	return OptionFeature{Enabled: true, Options: Options{JA: []string{"男性", "女性"}, EN: []string{"Male", "Female"}}}
}
