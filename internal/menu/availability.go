package menu

import "github.com/tl-its-umich-edu/m-voice/internal/textutil"

// FindMeal: returns the meal named name, compared case-insensitively.
func (t *Tree) FindMeal(name string) (Meal, bool) {
	if t == nil {
		return Meal{}, false
	}
	for _, meal := range t.Menu.Meals {
		if textutil.EqualFold(meal.Name, name) {
			return meal, true
		}
	}
	return Meal{}, false
}

// MealAvailable: reports whether meal is served, i.e. listed with at least one course.
func MealAvailable(tree *Tree, meal string) bool {
	found, ok := tree.FindMeal(meal)
	return ok && len(found.Courses) > 0
}

// CourseAvailable: reports whether meal has a course named course.
func CourseAvailable(tree *Tree, meal, course string) bool {
	found, ok := tree.FindMeal(meal)
	if !ok {
		return false
	}
	for _, c := range found.Courses {
		if textutil.EqualFold(c.Name, course) {
			return true
		}
	}
	return false
}
