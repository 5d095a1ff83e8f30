package twitter

// FieldSelectors lists the tweet, expansion and linked-object fields to
// request from the search endpoints.
type FieldSelectors struct {
	Tweet      []string
	Expansions []string
	User       []string
	Media      []string
	Poll       []string
	Place      []string
}

// ComprehensiveFields returns the full field selection used for archival
// downloads: everything the v2 search endpoints can attach to a tweet.
func ComprehensiveFields() FieldSelectors {
	return FieldSelectors{
		Tweet: []string{
			"attachments", "author_id", "context_annotations", "conversation_id",
			"created_at", "edit_controls", "edit_history_tweet_ids", "entities",
			"geo", "id", "in_reply_to_user_id", "lang", "possibly_sensitive",
			"public_metrics", "referenced_tweets", "reply_settings", "source", "text",
			"withheld",
		},
		Expansions: []string{
			"attachments.media_keys", "attachments.poll_ids", "author_id",
			"edit_history_tweet_ids", "entities.mentions.username", "geo.place_id",
			"in_reply_to_user_id", "referenced_tweets.id", "referenced_tweets.id.author_id",
		},
		User: []string{
			"created_at", "description", "entities", "id", "location", "name",
			"pinned_tweet_id", "profile_image_url", "protected", "public_metrics",
			"url", "username", "verified", "verified_type", "withheld",
		},
		Media: []string{
			"alt_text", "duration_ms", "height", "media_key", "non_public_metrics",
			"organic_metrics", "preview_image_url", "promoted_metrics", "public_metrics",
			"type", "url", "variants", "width",
		},
		Poll: []string{
			"duration_minutes", "end_datetime", "id", "options", "voting_status",
		},
		Place: []string{
			"contained_within", "country", "country_code", "full_name", "geo", "id",
			"name", "place_type",
		},
	}
}
