package identity

import "time"

// Demo returns the seeded demo identities.
func Demo() []Identity {
	return []Identity{
		{
			ID:         "1",
			Name:       "Alex Morgan",
			Email:      "admin@facetrack.com",
			Role:       RoleAdmin,
			Department: "IT",
			EmployeeID: "EMP001",
			IsActive:   true,
			CreatedAt:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			Avatar:     "https://images.pexels.com/photos/2379004/pexels-photo-2379004.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&dpr=1",
		},
		{
			ID:         "2",
			Name:       "Sarah Chen",
			Email:      "sarah@facetrack.com",
			Role:       RoleEmployee,
			Department: "HR",
			EmployeeID: "EMP002",
			IsActive:   true,
			CreatedAt:  time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
			Avatar:     "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&dpr=1",
		},
		{
			ID:         "3",
			Name:       "Michael Rodriguez",
			Email:      "michael@facetrack.com",
			Role:       RoleEmployee,
			Department: "Engineering",
			EmployeeID: "EMP003",
			IsActive:   true,
			CreatedAt:  time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC),
			Avatar:     "https://images.pexels.com/photos/1222271/pexels-photo-1222271.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&dpr=1",
		},
	}
}

// DemoDirectory returns a directory over the demo identities.
func DemoDirectory() *Directory {
	d, err := NewDirectory(Demo()...)
	if err != nil {
		panic(err)
	}
	return d
}
