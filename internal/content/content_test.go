package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/content"
	"folio/internal/testsupport"
)

func TestTopArticlesByViews(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	testsupport.CreateTestArticle(t, db, "beta", "Beta", 5)
	testsupport.CreateTestArticle(t, db, "alpha", "Alpha", 5)
	testsupport.CreateTestArticle(t, db, "gamma", "Gamma", 9)

	t.Run("orders by views desc then slug asc", func(t *testing.T) {
		articles, err := content.TopArticlesByViews(db, 0)
		require.NoError(t, err)
		require.Len(t, articles, 3)
		assert.Equal(t, "gamma", articles[0].Slug)
		assert.Equal(t, "alpha", articles[1].Slug)
		assert.Equal(t, "beta", articles[2].Slug)
	})

	t.Run("applies the limit", func(t *testing.T) {
		articles, err := content.TopArticlesByViews(db, 2)
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, "gamma", articles[0].Slug)
	})
}

func TestIncrementArticleViews(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	testsupport.CreateTestArticle(t, db, "alpha", "Alpha", 0)

	content.IncrementArticleViews(logger, db, "alpha")
	content.IncrementArticleViews(logger, db, "alpha")
	content.IncrementArticleViews(logger, db, "missing")

	var article content.Article
	require.NoError(t, db.First(&article, "slug = ?", "alpha").Error)
	assert.Equal(t, 2, article.Views)
}

func TestListProjects(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	require.NoError(t, db.Create(&content.Project{Slug: "older", Title: "Older", Year: 2021}).Error)
	require.NoError(t, db.Create(&content.Project{Slug: "newer", Title: "Newer", Year: 2024}).Error)

	projects, err := content.ListProjects(db)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "newer", projects[0].Slug)
	assert.Equal(t, "older", projects[1].Slug)
}
