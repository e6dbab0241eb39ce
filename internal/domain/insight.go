package domain

import "time"

// Insight is the denormalized snapshot published to the search index.
type Insight struct {
	ID            string         `json:"id"`
	ExternalID    string         `json:"externalId"`
	FullName      string         `json:"fullName"`
	Namespace     string         `json:"namespace"`
	Name          string         `json:"name"`
	ItemType      string         `json:"itemType"`
	Description   string         `json:"description,omitempty"`
	Tags          []string       `json:"tags"`
	IsUnlisted    bool           `json:"isUnlisted"`
	Repository    Repository     `json:"repository"`
	Readme        *Readme        `json:"readme,omitempty"`
	Files         []FileRecord   `json:"files"`
	Contributors  []User         `json:"contributors,omitempty"`
	Links         []Link         `json:"links,omitempty"`
	Authors       []string       `json:"authors,omitempty"`
	Excluded      []string       `json:"excludedAuthors,omitempty"`
	Creation      map[string]any `json:"creation,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ThumbnailPath string         `json:"thumbnailPath,omitempty"`
	ThumbnailURL  string         `json:"thumbnailUrl,omitempty"`
	CommentCount  int64          `json:"commentCount"`
	LikeCount     int64          `json:"likeCount"`
	ViewCount     int64          `json:"viewCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	SyncedAt      time.Time      `json:"syncedAt"`
}

type Repository struct {
	Type             RepositoryType `json:"type"`
	URL              string         `json:"url,omitempty"`
	CloneURL         string         `json:"cloneUrl,omitempty"`
	ExternalID       string         `json:"externalId"`
	ExternalFullName string         `json:"externalFullName"`
	Owner            Owner          `json:"owner"`
	DefaultBranch    string         `json:"defaultBranch,omitempty"`
	IsArchived       bool           `json:"isArchived"`
	IsReadOnly       bool           `json:"isReadOnly"`
	StarCount        int            `json:"starCount"`
	ForkCount        int            `json:"forkCount"`
	WatcherCount     int            `json:"watcherCount"`
}

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Type      string `json:"type,omitempty"`
}

// FileRecord describes one file of an Insight. ID is stable for a given
// (Name, Path) across syncs.
type FileRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Size        int64        `json:"size"`
	Encoding    string       `json:"encoding,omitempty"`
	Hash        string       `json:"hash"`
	MimeType    string       `json:"mimeType"`
	IsReadOnly  bool         `json:"isReadOnly"`
	Contents    string       `json:"contents,omitempty"`
	Conversions []Conversion `json:"conversions,omitempty"`
}

// Key identifies a file across snapshots.
func (f FileRecord) Key() string {
	return f.Name + "\x00" + f.Path
}

type Conversion struct {
	MimeType string `json:"mimeType"`
	Path     string `json:"path"`
}

type Readme struct {
	Path        string      `json:"path"`
	Contents    string      `json:"contents"`
	ReadingTime ReadingTime `json:"readingTime"`
}

type ReadingTime struct {
	Text    string  `json:"text"`
	Minutes float64 `json:"minutes"`
	Time    int64   `json:"time"` // milliseconds
	Words   int     `json:"words"`
}

type Link struct {
	URL   string `json:"url" yaml:"url"`
	Name  string `json:"name,omitempty" yaml:"name"`
	Group string `json:"group,omitempty" yaml:"group"`
}

// InsightRecord is the relational row backing an Insight.
type InsightRecord struct {
	ID             int64      `db:"insight_id"`
	ExternalID     string     `db:"external_id"`
	InsightName    string     `db:"insight_name"`
	ItemType       string     `db:"item_type"`
	RepositoryData string     `db:"repository_data"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

type User struct {
	ID          int64  `db:"user_id" json:"userId,omitempty"`
	UserName    string `db:"user_name" json:"userName"`
	Email       string `db:"email" json:"email,omitempty"`
	DisplayName string `db:"display_name" json:"displayName"`
	GitHubLogin string `db:"github_login" json:"githubLogin,omitempty"`
	AvatarURL   string `db:"avatar_url" json:"avatarUrl,omitempty"`
}

// Counters are interaction totals maintained by the social layer.
type Counters struct {
	Comments int64 `db:"comments"`
	Likes    int64 `db:"likes"`
	Views    int64 `db:"views"`
}
