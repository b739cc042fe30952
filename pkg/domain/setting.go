package domain

import "time"

// Setting represents a key-value configuration setting
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// well-known setting keys, overriding the compiled-in defaults
const (
	SettingPredictionKeywords = "keywords_prediction"
	SettingExclusionKeywords  = "keywords_exclusion"
	SettingForumUpvotes       = "threshold_forum_upvotes"
	SettingForumComments      = "threshold_forum_comments"
	SettingForumRatio         = "threshold_forum_ratio"
	SettingMicroblogLikes     = "threshold_microblog_likes"
	SettingMicroblogRetweets  = "threshold_microblog_retweets"
	SettingWebScore           = "threshold_web_score"
	SettingMicroblogAccounts  = "microblog_monitor_accounts"
)
