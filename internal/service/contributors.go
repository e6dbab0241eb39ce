package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"insight_sync/internal/domain"
)

// resolveContributors prefers the authors listed in the manifest (matched by
// email). Without them it falls back to the backend's contributor logins,
// minus excluded authors. Unknown people get a stub user.
func (s *SyncService) resolveContributors(
	ctx context.Context,
	backend Backend,
	task domain.SyncTask,
	insight *domain.Insight,
) ([]domain.User, error) {
	var users []domain.User

	if len(insight.Authors) > 0 {
		for _, author := range insight.Authors {
			u, err := s.users.GetByEmail(ctx, author)
			if errors.Is(err, domain.ErrNotFound) {
				users = append(users, domain.User{UserName: author, DisplayName: author})
				continue
			}
			if err != nil {
				return nil, err
			}
			users = append(users, *u)
		}
		return dedupeUsers(users), nil
	}

	logins, err := backend.Contributors(ctx, task)
	if err != nil {
		return nil, err
	}

	excluded := mapset.NewThreadUnsafeSet[string]()
	for _, e := range insight.Excluded {
		excluded.Add(strings.ToLower(e))
	}

	for _, login := range logins {
		if excluded.Contains(strings.ToLower(login)) {
			continue
		}
		u, err := s.users.GetByGitHubLogin(ctx, login)
		if errors.Is(err, domain.ErrNotFound) {
			users = append(users, domain.User{UserName: login, DisplayName: login, GitHubLogin: login})
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return dedupeUsers(users), nil
}

func dedupeUsers(users []domain.User) []domain.User {
	if len(users) == 0 {
		return nil
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		key := "name:" + strings.ToLower(u.UserName)
		if u.ID > 0 {
			key = "id:" + strconv.FormatInt(u.ID, 10)
		}
		if seen.Add(key) {
			out = append(out, u)
		}
	}
	return out
}
