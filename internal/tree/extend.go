package tree

// Extend binds a caller-defined extension to a repository.
//
// Extensions are plain types that embed or hold the Repository, so the
// core operations stay available next to the added methods:
//
//	type CategoryRepo struct{ tree.Repository }
//
//	func (c CategoryRepo) FindLeaves(ctx context.Context) ([]*meta.Entity, error) { ... }
//
//	repo := tree.Extend(base, func(r tree.Repository) CategoryRepo { return CategoryRepo{r} })
func Extend[T any](repo Repository, build func(Repository) T) T {
	return build(repo)
}
