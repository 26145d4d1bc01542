package usermodel

import (
	"time"
)

type UserData struct {
	User User `json:"user"`
}

type Notifications struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type Preferences struct {
	Notifications Notifications `json:"notifications"`
	Theme         string        `json:"theme"`
	Timezone      string        `json:"timezone"`
}

type Profile struct {
	AvatarUrl string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Social    Social `json:"social"`
}

type Social struct {
	Github   string `json:"github"`
	Linkedin string `json:"linkedin"`
	Twitter  string `json:"twitter"`
}

type Stats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Posts     int64 `json:"posts"`
}

type User struct {
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	Email       string      `json:"email"`
	Id          int64       `json:"id"`
	Name        string      `json:"name"`
	Preferences Preferences `json:"preferences"`
	Profile     Profile     `json:"profile"`
	Roles       []string    `json:"roles"`
	Stats       Stats       `json:"stats"`
}
