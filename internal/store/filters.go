package store

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xiy/taskbridge/pkg/types"
)

// involvementFilter matches items the account created or is assigned to.
// Equality against the assigned_to array matches membership.
func involvementFilter(accountID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"created_by": accountID},
		bson.M{"assigned_to": accountID},
	}}
}

// searchFilter matches items whose title, description or any tag contains
// the term, case-insensitively. The term is escaped so user input cannot
// inject regex syntax.
func searchFilter(term string) bson.M {
	re := primitive.Regex{Pattern: escapeRegex(term), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"description": re},
		bson.M{"tags": re},
	}}
}

func statusFilter(status types.Status) bson.M {
	return bson.M{"status": string(status)}
}

func priorityFilter(priority types.Priority) bson.M {
	return bson.M{"priority": string(priority)}
}

// groupByCountPipeline counts documents grouped by the given field, with an
// optional match stage first.
func groupByCountPipeline(field string, match bson.M) []bson.M {
	pipeline := make([]bson.M, 0, 2)
	if match != nil {
		pipeline = append(pipeline, bson.M{"$match": match})
	}
	pipeline = append(pipeline, bson.M{"$group": bson.M{
		"_id":   "$" + field,
		"count": bson.M{"$sum": 1},
	}})
	return pipeline
}

var regexSpecials = `\.+*?()|[]{}^$`

func escapeRegex(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(regexSpecials, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func clampLimit(limit int) int64 {
	if limit <= 0 || limit > DefaultLimit {
		return int64(DefaultLimit)
	}
	return int64(limit)
}
