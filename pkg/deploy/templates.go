package deploy

// 远端配置树的模板
// 渲染结果落在每个节点的 {{.StackDir}} 下，是本工具在远端持久化的全部状态，
// remove 操作删除的就是这棵目录树

// composeTemplate 定义边缘代理 + 内部 web 服务器两个服务
const composeTemplate = `services:
  traefik:
    image: traefik:{{.TraefikVersion}}
    container_name: sstack-traefik
    restart: unless-stopped
    ports:
      - "{{.HTTPPort}}:80"
      - "{{.HTTPSPort}}:443"
    volumes:
      - {{.StackDir}}/traefik/traefik.yml:/etc/traefik/traefik.yml:ro
      - {{.StackDir}}/traefik/dynamic.yml:/etc/traefik/dynamic.yml:ro
    networks:
      - sstack

  nginx:
    image: nginx:{{.NginxVersion}}
    container_name: sstack-nginx
    restart: unless-stopped
    volumes:
      - {{.StackDir}}/nginx/nginx.conf:/etc/nginx/nginx.conf:ro
      - {{.StackDir}}/nginx/headers.conf:/etc/nginx/headers.conf:ro
    networks:
      - sstack

networks:
  sstack:
    driver: bridge
`

// traefikStaticTemplate 边缘代理静态配置
// 动态配置走 file provider 并开启 watch，响应头下发后无须重启代理
const traefikStaticTemplate = `entryPoints:
  web:
    address: ":80"
  websecure:
    address: ":443"

providers:
  file:
    filename: /etc/traefik/dynamic.yml
    watch: true

api:
  dashboard: false

log:
  level: WARN
`

// nginxConfTemplate 内部 web 服务器配置
// 响应头片段单独成文件，headers 操作只替换片段不动主配置
const nginxConfTemplate = `user nginx;
worker_processes auto;
error_log /var/log/nginx/error.log warn;
pid /var/run/nginx.pid;

events {
    worker_connections 1024;
}

http {
    include /etc/nginx/mime.types;
    default_type application/octet-stream;
    access_log /var/log/nginx/access.log;
    sendfile on;
    keepalive_timeout 65;

    server {
        listen 80;
        server_name {{.Domain}};

        include /etc/nginx/headers.conf;

        location / {
            root /usr/share/nginx/html;
            index index.html;
        }
    }
}
`

// unitTemplate 开机自启的 systemd 单元，保证宿主机重启后栈被重新拉起
const unitTemplate = `[Unit]
Description=sstack reverse-proxy web stack
Requires=docker.service
After=docker.service

[Service]
Type=oneshot
RemainAfterExit=yes
ExecStart=/usr/bin/docker compose -f {{.StackDir}}/docker-compose.yml up -d
ExecStop=/usr/bin/docker compose -f {{.StackDir}}/docker-compose.yml down

[Install]
WantedBy=multi-user.target
`
