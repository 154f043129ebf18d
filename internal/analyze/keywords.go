package analyze

// SubCategoryGroup is a named set of description substrings used to break
// the category subset down further.
type SubCategoryGroup struct {
	Name     string
	Keywords []string
}

// subCategoryGroups are the fixed sub-groups for the beauty/skincare
// category. A video may fall into more than one group.
var subCategoryGroups = []SubCategoryGroup{
	{
		Name: "skincare",
		Keywords: []string{
			"skincare", "serum", "moisturizer", "cleanser", "toner", "mask",
			"护肤", "精华", "面膜", "洁面", "สกินแคร์", "เซรั่ม",
		},
	},
	{
		Name: "makeup",
		Keywords: []string{
			"makeup", "lipstick", "mascara", "foundation", "eyeshadow", "cushion",
			"彩妆", "口红", "粉底", "眼影", "ลิปสติก",
		},
	},
	{
		Name: "suncare",
		Keywords: []string{
			"sunscreen", "spf", "防晒", "กันแดด",
		},
	},
	{
		Name: "review",
		Keywords: []string{
			"review", "tutorial", "unboxing", "测评", "评测", "教程", "รีวิว",
		},
	},
}

// ctaPhrases are the fixed call-to-action markers: purchase or promotion
// language in any of the markets the creators post in.
var ctaPhrases = []string{
	"link in bio", "shop now", "discount", "promo code", "tiktok shop",
	"购买", "下单", "链接", "优惠", "折扣", "买它",
	"ซื้อ", "สั่งซื้อ", "ลดราคา", "โปรโมชั่น",
}
